// Schema migration and maintenance tasks
// cmd/migrate/main.go
package main

import (
	"context"
	"flag"
	"log"
	"strings"
	"time"

	"faculty-ranker-api/config"
	"faculty-ranker-api/models"
	"faculty-ranker-api/repository"
	"faculty-ranker-api/utils"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	var (
		hashPasswords bool
		purgeSignups  bool
		promoteAdmins bool
	)
	flag.BoolVar(&hashPasswords, "hash-passwords", false, "bcrypt any stored plaintext passwords")
	flag.BoolVar(&purgeSignups, "purge-signups", false, "delete expired pending signups")
	flag.BoolVar(&promoteAdmins, "promote-admins", false, "give role admin to every user listed in ADMIN_EMAILS")
	flag.Parse()

	cfg := config.Load()

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect database:", err)
	}
	store := repository.NewGormStore(db, cfg.NamedLockWait)

	if err := store.AutoMigrate(); err != nil {
		log.Fatal("Failed to migrate schema:", err)
	}
	log.Println("Schema migration completed")

	ctx := context.Background()

	if hashPasswords {
		if err := hashPlaintextPasswords(ctx, store); err != nil {
			log.Fatal("Password migration failed:", err)
		}
		log.Println("Password migration completed!")
	}

	if purgeSignups {
		var purged int64
		err := store.Tx(ctx, func(tx repository.Tx) error {
			n, err := tx.PurgeExpiredSignups(time.Now())
			purged = n
			return err
		})
		if err != nil {
			log.Fatal("Failed to purge pending signups:", err)
		}
		log.Printf("Purged %d expired pending signups\n", purged)
	}

	if promoteAdmins {
		for _, email := range cfg.AdminEmails {
			if !utils.ValidateEmail(email) {
				log.Printf("Skipping invalid admin email %q\n", email)
				continue
			}
			if err := promote(ctx, store, email); err != nil {
				log.Printf("Failed to promote %s: %v\n", email, err)
			}
		}
	}
}

func hashPlaintextPasswords(ctx context.Context, store repository.Store) error {
	return store.Tx(ctx, func(tx repository.Tx) error {
		users, err := tx.ListUsers()
		if err != nil {
			return err
		}

		for i := range users {
			user := &users[i]
			// Skip if empty or already hashed (bcrypt hashes start with $2)
			if user.Password == "" || strings.HasPrefix(user.Password, "$2") {
				continue
			}

			hashed, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
			if err != nil {
				log.Printf("Failed to hash password for user %s: %v\n", user.Email, err)
				continue
			}
			user.Password = string(hashed)
			if err := tx.UpdateUser(user); err != nil {
				return err
			}
			log.Printf("Successfully updated password for user %s\n", user.Email)
		}
		return nil
	})
}

func promote(ctx context.Context, store repository.Store, email string) error {
	return store.Tx(ctx, func(tx repository.Tx) error {
		user, err := tx.UserByEmail(email)
		if err != nil {
			return err
		}
		if user.Role == models.RoleAdmin {
			return nil
		}
		user.Role = models.RoleAdmin
		if err := tx.UpdateUser(user); err != nil {
			return err
		}
		log.Printf("Promoted %s to admin\n", email)
		return nil
	})
}
