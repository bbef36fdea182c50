package fixtures

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/estatehub/seeder/internal/backend"
)

// Generated value ranges.
const (
	MinPrice         = 50000
	MaxPrice         = 2000000
	MinYear          = 1950
	MinProperties    = 1
	MaxProperties    = 5
	MinImages        = 2
	MaxImages        = 5
	CodePrefix       = "PROP-"
	CodeLength       = 8
	DefaultPhotoBase = "https://i.pravatar.cc"
	DefaultImageBase = "https://picsum.photos"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var propertyKinds = []string{"Residence", "Villa", "Apartments", "House", "Lofts", "Estate", "Cottage", "Tower"}

// Generator produces plausible owner and property payloads. It is safe for
// concurrent use.
type Generator struct {
	mu        sync.Mutex
	faker     *gofakeit.Faker
	now       func() time.Time
	photoBase string
	imageBase string
}

// New creates a generator. A zero seed draws a random one.
func New(seed uint64, photoBase, imageBase string) *Generator {
	if photoBase == "" {
		photoBase = DefaultPhotoBase
	}
	if imageBase == "" {
		imageBase = DefaultImageBase
	}
	return &Generator{
		faker:     gofakeit.New(seed),
		now:       time.Now,
		photoBase: strings.TrimRight(photoBase, "/"),
		imageBase: strings.TrimRight(imageBase, "/"),
	}
}

func (g *Generator) intRange(lo, hi int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.faker.IntRange(lo, hi)
}

func (g *Generator) address() string {
	return fmt.Sprintf("%s, %s", g.faker.Street(), g.faker.City())
}

// Owner returns a random owner payload.
func (g *Generator) Owner() backend.OwnerInput {
	g.mu.Lock()
	defer g.mu.Unlock()
	return backend.OwnerInput{
		Name:    g.faker.Name(),
		Address: g.address(),
	}
}

// Property returns a random property payload owned by owner.
func (g *Generator) Property(owner backend.ID) backend.PropertyInput {
	g.mu.Lock()
	defer g.mu.Unlock()
	kind := propertyKinds[g.faker.IntRange(0, len(propertyKinds)-1)]
	return backend.PropertyInput{
		Name:         fmt.Sprintf("%s %s", g.faker.LastName(), kind),
		Address:      g.address(),
		Price:        float64(g.faker.IntRange(MinPrice, MaxPrice)),
		CodeInternal: g.code(),
		Year:         g.faker.IntRange(MinYear, g.now().Year()),
		IDOwner:      owner,
	}
}

// CodeInternal returns a PROP- token with 8 uppercase alphanumerics.
func (g *Generator) CodeInternal() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.code()
}

func (g *Generator) code() string {
	var b strings.Builder
	b.WriteString(CodePrefix)
	for i := 0; i < CodeLength; i++ {
		b.WriteByte(codeAlphabet[g.faker.IntRange(0, len(codeAlphabet)-1)])
	}
	return b.String()
}

// PhotoURL returns a random profile photo source.
func (g *Generator) PhotoURL() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fmt.Sprintf("%s/300?u=%s", g.photoBase, g.faker.UUID())
}

// ImageURL returns a random gallery image source.
func (g *Generator) ImageURL() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fmt.Sprintf("%s/seed/%s/800/600", g.imageBase, g.faker.UUID())
}

// PropertyCount is how many properties one owner gets.
func (g *Generator) PropertyCount() int {
	return g.intRange(MinProperties, MaxProperties)
}

// ImageCount is how many gallery images one property gets.
func (g *Generator) ImageCount() int {
	return g.intRange(MinImages, MaxImages)
}
