package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	emailPkg "nursery/internal/adapters/email"
	web "nursery/internal/adapters/http"
	"nursery/internal/adapters/http/perf"
	"nursery/internal/adapters/storage"
	accountStore "nursery/internal/adapters/storage/account"
	activityStore "nursery/internal/adapters/storage/activity"
	attendanceStore "nursery/internal/adapters/storage/attendance"
	classStore "nursery/internal/adapters/storage/class"
	eventStore "nursery/internal/adapters/storage/event"
	expenseStore "nursery/internal/adapters/storage/expense"
	paymentStore "nursery/internal/adapters/storage/payment"
	settingsStore "nursery/internal/adapters/storage/settings"
	staffStore "nursery/internal/adapters/storage/staff"
	studentStore "nursery/internal/adapters/storage/student"
	"nursery/internal/application/orchestrators"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

// reminderDispatchInterval controls how often due reminders are delivered.
const reminderDispatchInterval = time.Hour

func main() {
	backend := envOrDefault("NURSERY_BACKEND", "sqlite")

	var stores *web.Stores
	switch backend {
	case "sqlite":
		dbPath := envOrDefault("NURSERY_DB_PATH", "nursery.db")
		manager, err := storage.Open(dbPath)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		defer manager.Close()
		stores = &web.Stores{
			AccountStore:    accountStore.NewSQLiteStore(manager),
			StudentStore:    studentStore.NewSQLiteStore(manager),
			ClassStore:      classStore.NewSQLiteStore(manager),
			AttendanceStore: attendanceStore.NewSQLiteStore(manager),
			PaymentStore:    paymentStore.NewSQLiteStore(manager),
			ExpenseStore:    expenseStore.NewSQLiteStore(manager),
			StaffStore:      staffStore.NewSQLiteStore(manager),
			EventStore:      eventStore.NewSQLiteStore(manager),
			SettingsStore:   settingsStore.NewSQLiteStore(manager),
			ActivityStore:   activityStore.NewSQLiteStore(manager),
			Manager:         manager,
			BackupDir:       envOrDefault("NURSERY_BACKUP_DIR", "backups"),
		}
		log.Printf("Database ready at %s", dbPath)
	case "memory":
		students := studentStore.NewMemoryStore()
		classes := classStore.NewMemoryStore(students)
		stores = &web.Stores{
			AccountStore:    accountStore.NewMemoryStore(),
			StudentStore:    students,
			ClassStore:      classes,
			AttendanceStore: attendanceStore.NewMemoryStore(classes),
			PaymentStore:    paymentStore.NewMemoryStore(),
			ExpenseStore:    expenseStore.NewMemoryStore(),
			StaffStore:      staffStore.NewMemoryStore(),
			EventStore:      eventStore.NewMemoryStore(),
			SettingsStore:   settingsStore.NewMemoryStore(),
			ActivityStore:   activityStore.NewMemoryStore(),
		}
		log.Println("In-memory backend selected; data will not survive a restart")
	default:
		log.Fatalf("unknown NURSERY_BACKEND %q (want sqlite or memory)", backend)
	}

	// Seed the bootstrap admin account
	seed := orchestrators.SeedAdminInput{
		Username: envOrDefault("NURSERY_ADMIN_USERNAME", "admin"),
		Password: envOrDefault("NURSERY_ADMIN_PASSWORD", "changeme-please"),
	}
	if err := orchestrators.ExecuteSeedAdmin(context.Background(), seed, stores.AccountStore); err != nil {
		log.Fatalf("failed to seed admin: %v", err)
	}

	// Configure email delivery for payment reminders
	resendKey := os.Getenv("NURSERY_RESEND_API_KEY")
	emailFrom := envOrDefault("NURSERY_EMAIL_FROM", "Nursery <noreply@example.com>")
	if resendKey != "" {
		web.SetEmailSender(emailPkg.NewResendSender(resendKey, emailFrom))
		log.Println("Email sender configured (Resend)")
	} else {
		web.SetEmailSender(emailPkg.NewNoopSender())
		if os.Getenv("NURSERY_ENV") == "production" {
			log.Println("WARNING: NURSERY_RESEND_API_KEY is not set, reminder delivery is DISABLED in production")
		} else {
			log.Println("Email sender configured (noop; set NURSERY_RESEND_API_KEY for real delivery)")
		}
	}

	collector := perf.NewCollector(perf.DefaultRingSize)
	mux := web.NewMux(stores, collector)

	// Deliver due payment reminders in the background
	dispatchStop := make(chan struct{})
	go dispatchReminders(stores, dispatchStop)
	defer close(dispatchStop)

	addr := ":" + envOrDefault("PORT", "8080")
	log.Printf("Nursery %s starting on %s (env=%s, backend=%s)", version, addr, envOrDefault("NURSERY_ENV", "development"), backend)

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// dispatchReminders delivers due reminders once at startup and then on a
// fixed interval until stop is closed.
func dispatchReminders(stores *web.Stores, stop <-chan struct{}) {
	deps := orchestrators.ReminderDeps{
		ReminderStore: stores.PaymentStore,
		StudentStore:  stores.StudentStore,
		SettingsStore: stores.SettingsStore,
		EmailSender:   web.EmailSender(),
		ActivityStore: stores.ActivityStore,
	}
	ticker := time.NewTicker(reminderDispatchInterval)
	defer ticker.Stop()
	for {
		result, err := orchestrators.ExecuteDispatchReminders(context.Background(), deps)
		if err != nil {
			slog.Error("reminder_dispatch_failed", "error", err)
		} else if result.Sent > 0 || result.Failed > 0 {
			slog.Info("reminder_dispatch", "sent", result.Sent, "failed", result.Failed)
		}
		select {
		case <-ticker.C:
		case <-stop:
			return
		}
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
