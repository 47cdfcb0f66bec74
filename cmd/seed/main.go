package main

import (
	"log"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sacredheart/pharmacy_shop/internal/config"
	"github.com/sacredheart/pharmacy_shop/internal/hash"
	"github.com/sacredheart/pharmacy_shop/internal/models"
)

type seedMedicine struct {
	Name                 string
	GenericName          string
	Manufacturer         string
	Category             string
	Dosage               string
	Form                 string
	PackSize             string
	Price                string
	MRP                  string
	Stock                int
	RequiresPrescription bool
	IsScheduleH          bool
}

var seedCategories = []models.Category{
	{Name: "Pain Relief", Icon: "pill"},
	{Name: "Antibiotics", Icon: "capsule"},
	{Name: "Vitamins & Supplements", Icon: "vitamin"},
	{Name: "Digestive Health", Icon: "stomach"},
	{Name: "Cold & Flu", Icon: "cold"},
	{Name: "Diabetes Care", Icon: "diabetes"},
	{Name: "Heart Health", Icon: "heart"},
	{Name: "Skin Care", Icon: "skin"},
	{Name: "Eye Care", Icon: "eye"},
	{Name: "First Aid", Icon: "bandage"},
}

var seedMedicines = []seedMedicine{
	{Name: "Paracetamol 500mg", GenericName: "Paracetamol", Manufacturer: "Cipla", Category: "Pain Relief", Dosage: "500mg", Form: "Tablet", PackSize: "Strip of 15", Price: "25", MRP: "30", Stock: 150},
	{Name: "Dolo 650", GenericName: "Paracetamol", Manufacturer: "Micro Labs", Category: "Pain Relief", Dosage: "650mg", Form: "Tablet", PackSize: "Strip of 15", Price: "32", MRP: "38", Stock: 200},
	{Name: "Crocin Advance", GenericName: "Paracetamol", Manufacturer: "GSK", Category: "Pain Relief", Dosage: "500mg", Form: "Tablet", PackSize: "Strip of 15", Price: "28", MRP: "35", Stock: 180},
	{Name: "Combiflam", GenericName: "Ibuprofen + Paracetamol", Manufacturer: "Sanofi", Category: "Pain Relief", Dosage: "400mg+325mg", Form: "Tablet", PackSize: "Strip of 20", Price: "45", MRP: "52", Stock: 120},
	{Name: "Volini Gel", GenericName: "Diclofenac", Manufacturer: "Sun Pharma", Category: "Pain Relief", Dosage: "1%", Form: "Gel", PackSize: "30g", Price: "85", MRP: "99", Stock: 60},
	{Name: "Ultracet", GenericName: "Tramadol + Paracetamol", Manufacturer: "Johnson & Johnson", Category: "Pain Relief", Dosage: "37.5mg+325mg", Form: "Tablet", PackSize: "Strip of 10", Price: "125", MRP: "150", Stock: 40, RequiresPrescription: true, IsScheduleH: true},

	{Name: "Azithromycin 500", GenericName: "Azithromycin", Manufacturer: "Cipla", Category: "Antibiotics", Dosage: "500mg", Form: "Tablet", PackSize: "Strip of 3", Price: "95", MRP: "120", Stock: 80, RequiresPrescription: true, IsScheduleH: true},
	{Name: "Augmentin 625", GenericName: "Amoxicillin + Clavulanic Acid", Manufacturer: "GSK", Category: "Antibiotics", Dosage: "625mg", Form: "Tablet", PackSize: "Strip of 10", Price: "280", MRP: "320", Stock: 50, RequiresPrescription: true, IsScheduleH: true},
	{Name: "Ciprofloxacin 500", GenericName: "Ciprofloxacin", Manufacturer: "Ranbaxy", Category: "Antibiotics", Dosage: "500mg", Form: "Tablet", PackSize: "Strip of 10", Price: "65", MRP: "85", Stock: 60, RequiresPrescription: true, IsScheduleH: true},
	{Name: "Doxycycline 100", GenericName: "Doxycycline", Manufacturer: "Sun Pharma", Category: "Antibiotics", Dosage: "100mg", Form: "Capsule", PackSize: "Strip of 10", Price: "55", MRP: "70", Stock: 65, RequiresPrescription: true, IsScheduleH: true},

	{Name: "Becosules Capsule", GenericName: "Vitamin B Complex", Manufacturer: "Pfizer", Category: "Vitamins & Supplements", Form: "Capsule", PackSize: "Strip of 20", Price: "32", MRP: "40", Stock: 150},
	{Name: "Supradyn Daily", GenericName: "Multivitamin", Manufacturer: "Bayer", Category: "Vitamins & Supplements", Form: "Tablet", PackSize: "Strip of 15", Price: "75", MRP: "90", Stock: 100},
	{Name: "Shelcal 500", GenericName: "Calcium + Vitamin D3", Manufacturer: "Torrent", Category: "Vitamins & Supplements", Dosage: "500mg", Form: "Tablet", PackSize: "Strip of 15", Price: "145", MRP: "175", Stock: 90},
	{Name: "Limcee 500", GenericName: "Vitamin C", Manufacturer: "Abbott", Category: "Vitamins & Supplements", Dosage: "500mg", Form: "Chewable Tablet", PackSize: "Strip of 15", Price: "28", MRP: "35", Stock: 140},

	{Name: "Digene Tablet", GenericName: "Antacid", Manufacturer: "Abbott", Category: "Digestive Health", Form: "Chewable Tablet", PackSize: "Strip of 15", Price: "42", MRP: "52", Stock: 130},
	{Name: "Pan 40", GenericName: "Pantoprazole", Manufacturer: "Alkem", Category: "Digestive Health", Dosage: "40mg", Form: "Tablet", PackSize: "Strip of 15", Price: "95", MRP: "120", Stock: 85},
	{Name: "Omez 20", GenericName: "Omeprazole", Manufacturer: "Dr. Reddy's", Category: "Digestive Health", Dosage: "20mg", Form: "Capsule", PackSize: "Strip of 15", Price: "85", MRP: "105", Stock: 90},

	{Name: "Amlodipine 5", GenericName: "Amlodipine", Manufacturer: "Pfizer", Category: "Heart Health", Dosage: "5mg", Form: "Tablet", PackSize: "Strip of 14", Price: "65", MRP: "85", Stock: 100, RequiresPrescription: true},

	{Name: "Betadine Ointment", GenericName: "Povidone Iodine", Manufacturer: "Win-Medicare", Category: "Skin Care", Dosage: "5%", Form: "Ointment", PackSize: "15g", Price: "45", MRP: "58", Stock: 80},
	{Name: "Candid Cream", GenericName: "Clotrimazole", Manufacturer: "Glenmark", Category: "Skin Care", Dosage: "1%", Form: "Cream", PackSize: "15g", Price: "65", MRP: "82", Stock: 70},

	{Name: "Refresh Tears", GenericName: "Carboxymethylcellulose", Manufacturer: "Allergan", Category: "Eye Care", Dosage: "0.5%", Form: "Eye Drops", PackSize: "10ml", Price: "195", MRP: "235", Stock: 35},
	{Name: "Moxifloxacin Eye Drops", GenericName: "Moxifloxacin", Manufacturer: "Cipla", Category: "Eye Care", Dosage: "0.5%", Form: "Eye Drops", PackSize: "5ml", Price: "85", MRP: "105", Stock: 60, RequiresPrescription: true, IsScheduleH: true},

	{Name: "Band-Aid Flexible", GenericName: "Adhesive Bandage", Manufacturer: "Johnson & Johnson", Category: "First Aid", Form: "Bandage", PackSize: "Box of 30", Price: "85", MRP: "105", Stock: 100},
	{Name: "Dettol Antiseptic", GenericName: "Chloroxylenol", Manufacturer: "Reckitt", Category: "First Aid", Dosage: "4.8%", Form: "Liquid", PackSize: "125ml", Price: "65", MRP: "80", Stock: 90},
}

func main() {
	db, err := config.InitDB()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	if err := Seed(db); err != nil {
		log.Fatalf("seed error: %v", err)
	}
	log.Println("database seeded")
}

// Seed fills an empty database with the starter catalog and an admin account.
// It is a no-op when medicines already exist.
func Seed(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Medicine{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Println("database already seeded, skipping")
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		categoryIDs := make(map[string]string, len(seedCategories))
		for i := range seedCategories {
			cat := seedCategories[i]
			if err := tx.Create(&cat).Error; err != nil {
				return err
			}
			categoryIDs[cat.Name] = cat.ID
		}
		log.Printf("inserted %d categories", len(seedCategories))

		for _, m := range seedMedicines {
			categoryID := categoryIDs[m.Category]
			med := models.Medicine{
				Name:                 m.Name,
				GenericName:          m.GenericName,
				Manufacturer:         m.Manufacturer,
				CategoryID:           &categoryID,
				Dosage:               m.Dosage,
				Form:                 m.Form,
				PackSize:             m.PackSize,
				Price:                decimal.RequireFromString(m.Price),
				MRP:                  decimal.RequireFromString(m.MRP),
				Stock:                m.Stock,
				RequiresPrescription: m.RequiresPrescription,
				IsScheduleH:          m.IsScheduleH,
			}
			if err := tx.Create(&med).Error; err != nil {
				return err
			}
		}
		log.Printf("inserted %d medicines", len(seedMedicines))

		passwordHash, err := hash.HashPassword("admin123")
		if err != nil {
			return err
		}
		admin := models.User{
			Username:     "admin",
			PasswordHash: passwordHash,
			Role:         "admin",
			Email:        "admin@pharmacy.local",
		}
		if err := tx.Create(&admin).Error; err != nil {
			return err
		}
		log.Println("inserted admin user")

		return nil
	})
}
