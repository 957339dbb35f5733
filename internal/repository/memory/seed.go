package memory

import (
	"fmt"
	"os"

	"github.com/Domenick1991/servicehub/internal/domain"
	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Users []struct {
		ID   int64  `yaml:"id"`
		Role string `yaml:"role"`
		Name string `yaml:"name"`
	} `yaml:"users"`
	Services []struct {
		ID         int64  `yaml:"id"`
		ProviderID int64  `yaml:"provider_id"`
		Title      string `yaml:"title"`
		UnitPrice  int64  `yaml:"unit_price"`
		PriceType  string `yaml:"price_type"`
	} `yaml:"services"`
}

// LoadSeed reads users and services from a YAML file into the store.
func (s *Store) LoadSeed(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parse seed: %w", err)
	}

	for _, u := range seed.Users {
		role := domain.Role(u.Role)
		if !role.Valid() {
			return fmt.Errorf("seed user %d: unknown role %q", u.ID, u.Role)
		}
		s.AddUser(domain.User{ID: u.ID, Role: role, Name: u.Name})
	}
	for _, svc := range seed.Services {
		if svc.UnitPrice < 0 {
			return fmt.Errorf("seed service %d: negative unit price", svc.ID)
		}
		s.AddService(domain.Service{
			ID:         svc.ID,
			ProviderID: svc.ProviderID,
			Title:      svc.Title,
			UnitPrice:  svc.UnitPrice,
			PriceType:  svc.PriceType,
		})
	}
	return nil
}
