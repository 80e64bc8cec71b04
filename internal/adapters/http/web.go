package web

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"net/http"
	"os"
	"time"

	"nursery/internal/adapters/email"
	"nursery/internal/adapters/http/middleware"
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
)

// Stores holds all storage dependencies.
type Stores struct {
	AccountStore    accountStore.Store
	StudentStore    studentStore.Store
	ClassStore      classStore.Store
	AttendanceStore attendanceStore.Store
	PaymentStore    paymentStore.Store
	ExpenseStore    expenseStore.Store
	StaffStore      staffStore.Store
	EventStore      eventStore.Store
	SettingsStore   settingsStore.Store
	ActivityStore   activityStore.Store

	// Manager is the live database handle, needed for backup and restore.
	// Nil when running on the in-memory backend; backup endpoints then 503.
	Manager *storage.Manager

	// BackupDir is where backup exports are written.
	BackupDir string
}

// loadCSRFKey reads the CSRF secret from NURSERY_CSRF_KEY (hex-encoded, 32 bytes).
// In production, the key MUST be set. In development, a random key is generated per startup.
func loadCSRFKey() []byte {
	if keyHex := os.Getenv("NURSERY_CSRF_KEY"); keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil || len(key) != 32 {
			log.Fatal("NURSERY_CSRF_KEY must be 64 hex characters (32 bytes)")
		}
		return key
	}
	if os.Getenv("NURSERY_ENV") == "production" {
		log.Fatal("NURSERY_CSRF_KEY is required in production")
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		log.Fatalf("failed to generate CSRF key: %v", err)
	}
	log.Println("WARNING: using random CSRF key (sessions won't survive restart). Set NURSERY_CSRF_KEY for production.")
	return key
}

// Global stores instance (set by NewMux)
var stores *Stores

// Global session store instance
var sessions *middleware.SessionStore

// RateLimitPerSecond controls the per-IP rate limit. Tests can increase this.
var RateLimitPerSecond = 10

// Global perf collector (set by NewMux)
var perfCollector *perf.Collector

// Global email sender instance (set by SetEmailSender)
var emailSender email.Sender = email.NewNoopSender()

// SetEmailSender sets the email sender used for payment reminders.
func SetEmailSender(sender email.Sender) {
	emailSender = sender
}

// EmailSender returns the currently configured sender so background workers
// can share the handler wiring.
func EmailSender() email.Sender {
	return emailSender
}

// NewMux wires HTTP handlers for the app.
func NewMux(s *Stores, collector *perf.Collector) http.Handler {
	stores = s
	perfCollector = collector
	sessions = middleware.NewSessionStore()
	middleware.SecureCookies = os.Getenv("NURSERY_ENV") == "production"

	mux := http.NewServeMux()
	registerRoutes(mux)

	csrfKey := loadCSRFKey()
	limiter := middleware.NewRateLimiter(RateLimitPerSecond, time.Second)

	// Apply middleware: Timing -> RateLimit -> Auth -> CSRF -> SecurityHeaders -> Mux
	return middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.CSRF(csrfKey),
		middleware.Auth(sessions),
		middleware.RateLimit(limiter),
		middleware.Timing(collector),
	)
}
