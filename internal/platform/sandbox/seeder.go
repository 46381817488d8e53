// Package sandbox generates reproducible demo users for development
// databases: doctors and patients with realistic demographics and
// histories.
package sandbox

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/rpms/rpms/internal/domain/identity"
	"github.com/rpms/rpms/internal/platform/auth"
)

// SeedConfig controls the volume of generated users. Equal seeds produce
// equal users.
type SeedConfig struct {
	DoctorCount  int
	PatientCount int
	EmailDomain  string
	Seed         int64
}

func DefaultSeedConfig() SeedConfig {
	return SeedConfig{
		DoctorCount:  2,
		PatientCount: 10,
		EmailDomain:  "demo.rpms.local",
		Seed:         1,
	}
}

// SeedResult is the generated population.
type SeedResult struct {
	Doctors  []*identity.User
	Patients []*identity.User
}

var (
	firstNamesMale = []string{
		"Baraka", "Otieno", "Kiprono", "Mwangi", "Juma", "Kamau", "Omondi", "Wekesa",
	}
	firstNamesFemale = []string{
		"Amina", "Wanjiku", "Akinyi", "Chebet", "Njeri", "Achieng", "Zawadi", "Nafula",
	}
	lastNames = []string{
		"Otieno", "Mutua", "Kariuki", "Odhiambo", "Njoroge", "Wambui", "Kiplagat", "Onyango", "Muthoni", "Hassan",
	}
	histories = []string{
		"Hypertension, diagnosed 2019",
		"Type 2 diabetes on metformin",
		"Asthma since childhood",
		"Post-operative recovery after appendectomy",
		"Chronic kidney disease stage 2",
		"Heart failure with reduced ejection fraction",
		"Gestational diabetes, 28 weeks pregnant",
	}
)

// DataGenerator produces users from a deterministic random source.
type DataGenerator struct {
	rng    *rand.Rand
	domain string
	seq    int
}

func NewDataGenerator(seed int64, emailDomain string) *DataGenerator {
	return &DataGenerator{rng: rand.New(rand.NewSource(seed)), domain: emailDomain}
}

func (g *DataGenerator) pick(pool []string) string {
	return pool[g.rng.Intn(len(pool))]
}

func (g *DataGenerator) randomDate(minYear, maxYear int) time.Time {
	year := minYear + g.rng.Intn(maxYear-minYear+1)
	month := time.Month(1 + g.rng.Intn(12))
	day := 1 + g.rng.Intn(28)
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func (g *DataGenerator) email(prefix, first, last string) string {
	g.seq++
	return fmt.Sprintf("%s.%s.%s%d@%s", prefix, strings.ToLower(first), strings.ToLower(last), g.seq, g.domain)
}

func (g *DataGenerator) GenerateDoctor() *identity.User {
	first := g.pick(append(append([]string{}, firstNamesMale...), firstNamesFemale...))
	last := g.pick(lastNames)
	return &identity.User{
		Name:  "Dr. " + first + " " + last,
		Email: g.email("dr", first, last),
		Role:  auth.RoleDoctor,
	}
}

func (g *DataGenerator) GeneratePatient() *identity.User {
	gender := "Female"
	first := g.pick(firstNamesFemale)
	if g.rng.Intn(2) == 0 {
		gender = "Male"
		first = g.pick(firstNamesMale)
	}
	last := g.pick(lastNames)
	dob := g.randomDate(1945, 2005)
	u := &identity.User{
		Name:        first + " " + last,
		Email:       g.email("pt", first, last),
		Role:        auth.RolePatient,
		DateOfBirth: &dob,
		Gender:      &gender,
	}
	// Roughly one patient in five has no recorded history.
	if g.rng.Intn(5) != 0 {
		h := g.pick(histories)
		u.MedicalHistory = &h
	}
	return u
}

// Seeder builds a SeedResult from a SeedConfig.
type Seeder struct {
	config SeedConfig
}

func NewSeeder(config SeedConfig) *Seeder {
	if config.EmailDomain == "" {
		config.EmailDomain = DefaultSeedConfig().EmailDomain
	}
	return &Seeder{config: config}
}

func (s *Seeder) Generate() (*SeedResult, error) {
	if s.config.DoctorCount < 0 || s.config.PatientCount < 0 {
		return nil, fmt.Errorf("seed counts must not be negative")
	}
	g := NewDataGenerator(s.config.Seed, s.config.EmailDomain)
	res := &SeedResult{}
	for i := 0; i < s.config.DoctorCount; i++ {
		res.Doctors = append(res.Doctors, g.GenerateDoctor())
	}
	for i := 0; i < s.config.PatientCount; i++ {
		res.Patients = append(res.Patients, g.GeneratePatient())
	}
	return res, nil
}

// UserCreator persists one user.
type UserCreator interface {
	CreateUser(ctx context.Context, u *identity.User) error
}

// Apply generates the population and stores it, stopping at the first
// failure.
func (s *Seeder) Apply(ctx context.Context, users UserCreator) (*SeedResult, error) {
	res, err := s.Generate()
	if err != nil {
		return nil, err
	}
	for _, u := range append(append([]*identity.User{}, res.Doctors...), res.Patients...) {
		if err := users.CreateUser(ctx, u); err != nil {
			return nil, fmt.Errorf("seed %s: %w", u.Email, err)
		}
	}
	return res, nil
}
