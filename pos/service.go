package pos

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mmdatafocus/pitix_pos/config"
	"github.com/mmdatafocus/pitix_pos/models"
	"github.com/mmdatafocus/pitix_pos/possync"
	"github.com/mmdatafocus/pitix_pos/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Event is published to observers after a mutation has durably committed.
// Observers never see state that could vanish on crash.
type Event struct {
	Kind   string
	Record any
}

type Observer func(Event)

// Service is the action layer: the sole writer path into the local store
// and the sole owner of the in-memory snapshot the till UI reads. One
// long-lived instance is constructed at startup and injected into whatever
// calls it (HTTP handlers, test harness).
type Service struct {
	db     *gorm.DB
	remote possync.RemoteStore
	logger *logrus.Logger

	mu        sync.RWMutex
	users     map[string]models.User
	products  map[string]models.Product
	shifts    map[string]models.Shift
	sales     []models.Sale     // newest first
	auditLogs []models.AuditLog // newest first
	settings  models.BusinessSettings

	obsMu     sync.Mutex
	observers []Observer
}

func NewService(db *gorm.DB, remote possync.RemoteStore, logger *logrus.Logger) *Service {
	return &Service{
		db:       db,
		remote:   remote,
		logger:   logger,
		users:    make(map[string]models.User),
		products: make(map[string]models.Product),
		shifts:   make(map[string]models.Shift),
	}
}

// Bootstrap runs startup reconciliation (remote pull + merge when online,
// seed or local-only otherwise) and installs the result as in-memory state.
func (s *Service) Bootstrap(ctx context.Context, online bool) error {
	reconciler := possync.NewReconciler(s.db, s.remote, s.logger)
	snap, err := reconciler.Pull(ctx, online)
	if err != nil {
		return err
	}
	s.installSnapshot(snap)
	if snap.Seeded {
		s.logger.WithFields(logrus.Fields{
			"module": "pos",
		}).Info("first run: seeded default users and products")
	}
	return nil
}

func (s *Service) installSnapshot(snap *possync.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users = make(map[string]models.User, len(snap.Users))
	for _, u := range snap.Users {
		s.users[u.ID] = u
	}
	s.products = make(map[string]models.Product, len(snap.Products))
	for _, p := range snap.Products {
		s.products[p.ID] = p
	}
	s.shifts = make(map[string]models.Shift, len(snap.Shifts))
	for _, sh := range snap.Shifts {
		s.shifts[sh.ID] = sh
	}
	s.sales = snap.Sales
	s.auditLogs = snap.AuditLogs
	if snap.Settings != nil {
		s.settings = *snap.Settings
	}
}

func (s *Service) Subscribe(fn Observer) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.observers = append(s.observers, fn)
}

// publish notifies observers. Called only after the durable write
// succeeded; that ordering is the whole point.
func (s *Service) publish(ev Event) {
	s.obsMu.Lock()
	observers := make([]Observer, len(s.observers))
	copy(observers, s.observers)
	s.obsMu.Unlock()

	for _, fn := range observers {
		fn(ev)
	}
}

// Login resolves a PIN to a user. Absence of a match is not an error.
func (s *Service) Login(pin string) (*models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Active != nil && !*u.Active {
			continue
		}
		if utils.ComparePin(u.PinHash, pin) == nil {
			user := u
			return &user, true
		}
	}
	return nil, false
}

// --- read-side accessors for the till UI ---

func (s *Service) Users() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Service) Products() []models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Service) Product(id string) (models.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	return p, ok
}

func (s *Service) Sales() []models.Sale {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Sale, len(s.sales))
	copy(out, s.sales)
	return out
}

func (s *Service) Shifts() []models.Shift {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Shift, 0, len(s.shifts))
	for _, sh := range s.shifts {
		out = append(out, sh)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.After(out[j].OpenedAt) })
	return out
}

func (s *Service) AuditLogs() []models.AuditLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.AuditLog, len(s.auditLogs))
	copy(out, s.auditLogs)
	return out
}

func (s *Service) Settings() models.BusinessSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// --- actor identity and audit trail ---

type actor struct {
	id   string
	name string
}

func actorFromContext(ctx context.Context) actor {
	id, _ := utils.GetUserIdFromContext(ctx)
	name, _ := utils.GetUserNameFromContext(ctx)
	return actor{id: id, name: name}
}

// LogAction records a free-form audit entry on behalf of the caller (the
// till UI uses it for events that are not store mutations, like failed
// logins or report exports).
func (s *Service) LogAction(ctx context.Context, action string, details string) {
	s.audit(ctx, action, details)
}

// audit records who/when/what. Best-effort: failures are logged and never
// roll back the business mutation that triggered the entry.
func (s *Service) audit(ctx context.Context, action string, details string) {
	who := actorFromContext(ctx)
	entry := models.AuditLog{
		ID:        utils.NewRecordId(),
		UserId:    who.id,
		UserName:  who.name,
		Action:    action,
		Details:   details,
		Timestamp: time.Now(),
		Version:   1,
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := models.Put(tx, &entry); err != nil {
			return err
		}
		return models.EnqueueSync(tx, models.SyncOpLog, entry.ID, entry)
	})
	if err != nil {
		config.LogError(s.logger, "pos", "audit", action, nil, err)
		return
	}

	s.mu.Lock()
	s.auditLogs = append([]models.AuditLog{entry}, s.auditLogs...)
	s.mu.Unlock()
}

// commitRecord is the write path shared by single-record actions: the row
// and its sync queue entry land in one transaction, so a drained item can
// never describe a record that was lost to a crash.
func commitRecord[T any](s *Service, op models.SyncOpType, entityId string, rec *T) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := models.Put(tx, rec); err != nil {
			return err
		}
		return models.EnqueueSync(tx, op, entityId, rec)
	})
}
