package store

import (
	"github.com/hrygo/signalwatch/internal/profile"
)

// Store provides database access to all raw objects.
// Read caching lives one layer up, in the data-access services, so that
// invalidation sits next to the mutations that require it.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}
