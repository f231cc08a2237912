package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/dulmini1119/tms-sub001/internal/auth"
	"github.com/dulmini1119/tms-sub001/internal/core/datamodel/fleet"
	"github.com/dulmini1119/tms-sub001/internal/core/datamodel/user"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed vendors, vehicles, GPS devices, drivers and one user per role for development and testing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}

		sqlxDB, db, err := initDB(cfg.Database, cfg.IsProduction())
		if err != nil {
			return fmt.Errorf("failed to init db: %w", err)
		}
		defer sqlxDB.Close()

		if clearData {
			if err := db.Exec(`TRUNCATE trip_costs, invoices, gps_logs, trip_assignments, approval_steps,
				trip_requests, gps_devices, drivers, vehicles, cab_services, users CASCADE`).Error; err != nil {
				return fmt.Errorf("failed to clear data: %w", err)
			}
			fmt.Println("Cleared existing data")
		}

		hash, err := auth.HashPassword("password", cfg.Security.BCryptCost)
		if err != nil {
			return err
		}

		users := []user.User{
			{Email: "employee@tms.local", FirstName: "Nimal", LastName: "Perera", Role: user.RoleEmployee, Department: "Sales"},
			{Email: "manager@tms.local", FirstName: "Kamala", LastName: "Silva", Role: user.RoleManager, Department: "Sales"},
			{Email: "dispatcher@tms.local", FirstName: "Ruwan", LastName: "Fernando", Role: user.RoleDispatcher, Department: "Transport"},
			{Email: "finance@tms.local", FirstName: "Ishara", LastName: "Jayasinghe", Role: user.RoleFinance, Department: "Finance"},
			{Email: "admin@tms.local", FirstName: "Admin", Role: user.RoleAdmin, Department: "IT"},
		}

		tokens := auth.NewJWTTokenGenerator(cfg.Security.JWTSecret, 24*time.Hour)
		for i := range users {
			u := users[i]
			u.PasswordHash = hash
			u.IsActive = true
			if err := db.Where(user.User{Email: u.Email}).FirstOrCreate(&u).Error; err != nil {
				return fmt.Errorf("failed to seed user %s: %w", u.Email, err)
			}
			token, err := tokens.GenerateAccessToken(u.ID, u.Email, u.Role)
			if err != nil {
				return err
			}
			fmt.Printf("Seeded %-10s %-22s token: %s\n", u.Role, u.Email, token)
		}

		vendors := []struct {
			Name     string
			Email    string
			Vehicles []string
			Drivers  [][2]string
		}{
			{"Lanka Cabs", "billing@lankacabs.lk", []string{"CAB-1001", "CAB-1002"}, [][2]string{{"Sunil", "Bandara"}, {"Ajith", "Kumara"}}},
			{"Hill Country Tours", "accounts@hillcountry.lk", []string{"KY-2001"}, [][2]string{{"Pradeep", "Rathnayake"}}},
		}

		for _, v := range vendors {
			vendor := fleet.Vendor{Name: v.Name, ContactEmail: v.Email, IsActive: true}
			if err := db.Where(fleet.Vendor{Name: v.Name}).FirstOrCreate(&vendor).Error; err != nil {
				return fmt.Errorf("failed to seed vendor %s: %w", v.Name, err)
			}

			for _, reg := range v.Vehicles {
				if err := seedVehicle(db, vendor.ID, reg); err != nil {
					return err
				}
			}

			for i, d := range v.Drivers {
				driver := fleet.Driver{
					VendorID:      vendor.ID,
					FirstName:     d[0],
					LastName:      d[1],
					LicenseNumber: fmt.Sprintf("DL-%s-%02d", vendor.ID[:8], i+1),
					IsActive:      true,
				}
				if err := db.Where(fleet.Driver{LicenseNumber: driver.LicenseNumber}).FirstOrCreate(&driver).Error; err != nil {
					return fmt.Errorf("failed to seed driver %s: %w", d[0], err)
				}
			}
			fmt.Printf("Seeded vendor: %s (%s)\n", vendor.Name, vendor.ID)
		}

		log.Info("seed completed", "users", len(users), "vendors", len(vendors))
		return nil
	},
}

// seedVehicle creates the vehicle with one installed GPS device.
func seedVehicle(db *gorm.DB, vendorID, registration string) error {
	vehicle := fleet.Vehicle{
		VendorID:           vendorID,
		RegistrationNumber: registration,
		Make:               "Toyota",
		ModelName:          "Prius",
		VehicleType:        "Sedan",
		SeatingCapacity:    4,
		HasAC:              true,
		OperationalStatus:  fleet.OperationalStatusActive,
	}
	if err := db.Where(fleet.Vehicle{RegistrationNumber: registration}).FirstOrCreate(&vehicle).Error; err != nil {
		return fmt.Errorf("failed to seed vehicle %s: %w", registration, err)
	}

	installed := time.Now().UTC()
	device := fleet.GPSDevice{
		VehicleID:    vehicle.ID,
		DeviceSerial: "SN-" + registration,
		InstalledAt:  &installed,
	}
	if err := db.Where(fleet.GPSDevice{DeviceSerial: device.DeviceSerial}).FirstOrCreate(&device).Error; err != nil {
		return fmt.Errorf("failed to seed gps device for %s: %w", registration, err)
	}
	return nil
}
