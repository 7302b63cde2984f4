package database

import "fmt"

func (d *Database) RunMigrations() error {
	if err := d.db.AutoMigrate(&GeocodeEntry{}); err != nil {
		return fmt.Errorf("failed to migrate geocode_entries: %w", err)
	}
	return nil
}
