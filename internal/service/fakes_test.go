package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domainrepo "github.com/ignatzorin/taskfi-backend/internal/domain/repository"
	"github.com/ignatzorin/taskfi-backend/internal/domain/valueobject"
	"github.com/ignatzorin/taskfi-backend/internal/gateway"
	"github.com/ignatzorin/taskfi-backend/internal/models"
	"github.com/ignatzorin/taskfi-backend/internal/pkg/apperror"
)

// memState - содержимое хранилища в памяти. Транзакция работает с копией
// и при ошибке состояние откатывается.
type memState struct {
	users         map[uuid.UUID]models.User
	jobs          map[uuid.UUID]models.Job
	apps          map[uuid.UUID]models.JobApplication
	gigs          map[uuid.UUID]models.Gig
	packages      map[uuid.UUID]models.GigPackage
	orders        map[uuid.UUID]models.GigOrder
	payments      map[uuid.UUID]models.Payment
	history       []models.PaymentHistory
	settlements   map[string]models.SettlementRequest
	notifications []models.Notification
}

func newMemState() *memState {
	return &memState{
		users:       map[uuid.UUID]models.User{},
		jobs:        map[uuid.UUID]models.Job{},
		apps:        map[uuid.UUID]models.JobApplication{},
		gigs:        map[uuid.UUID]models.Gig{},
		packages:    map[uuid.UUID]models.GigPackage{},
		orders:      map[uuid.UUID]models.GigOrder{},
		payments:    map[uuid.UUID]models.Payment{},
		settlements: map[string]models.SettlementRequest{},
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.jobs {
		c.jobs[k] = v
	}
	for k, v := range s.apps {
		c.apps[k] = v
	}
	for k, v := range s.gigs {
		c.gigs[k] = v
	}
	for k, v := range s.packages {
		c.packages[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.payments {
		c.payments[k] = v
	}
	for k, v := range s.settlements {
		c.settlements[k] = v
	}
	c.history = append(c.history, s.history...)
	c.notifications = append(c.notifications, s.notifications...)
	return c
}

// memStore реализует domainrepo.Store. Транзакции выполняются строго по очереди.
type memStore struct {
	*memUoW
	mu       sync.Mutex
	state    *memState
	failures map[string]error
	// lostRaces - условные обновления, которые один раз вернут false,
	// как будто параллельная транзакция успела раньше.
	lostRaces map[string]bool
}

func newMemStore() *memStore {
	s := &memStore{state: newMemState(), failures: map[string]error{}, lostRaces: map[string]bool{}}
	s.memUoW = &memUoW{store: s}
	return s
}

// failOnce заставляет следующий вызов операции op вернуть err.
func (s *memStore) failOnce(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

// loseRaceOnce заставляет следующее условное обновление op не найти подходящую строку.
func (s *memStore) loseRaceOnce(op string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lostRaces[op] = true
}

// takeLostRace вызывается под блокировкой хранилища.
func (s *memStore) takeLostRace(op string) bool {
	if !s.lostRaces[op] {
		return false
	}
	delete(s.lostRaces, op)
	return true
}

func (s *memStore) InTx(ctx context.Context, fn func(uow domainrepo.UnitOfWork) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(&memUoW{store: s, inTx: true}); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

func (s *memStore) snapshot() *memState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

type memUoW struct {
	store *memStore
	inTx  bool
}

// do выполняет f над состоянием; вне транзакции под блокировкой.
func (u *memUoW) do(op string, f func(st *memState) error) error {
	if !u.inTx {
		u.store.mu.Lock()
		defer u.store.mu.Unlock()
	}
	if err, ok := u.store.failures[op]; ok {
		delete(u.store.failures, op)
		return err
	}
	return f(u.store.state)
}

func (u *memUoW) Users() domainrepo.UserRepository                    { return memUsers{u} }
func (u *memUoW) Jobs() domainrepo.JobRepository                      { return memJobs{u} }
func (u *memUoW) Applications() domainrepo.ApplicationRepository      { return memApps{u} }
func (u *memUoW) Gigs() domainrepo.GigRepository                      { return memGigs{u} }
func (u *memUoW) Payments() domainrepo.PaymentRepository              { return memPayments{u} }
func (u *memUoW) History() domainrepo.PaymentHistoryRepository        { return memHistory{u} }
func (u *memUoW) Settlements() domainrepo.SettlementRequestRepository { return memSettlements{u} }
func (u *memUoW) Notifications() domainrepo.NotificationRepository    { return memNotifications{u} }

type memUsers struct{ u *memUoW }

func (r memUsers) Create(ctx context.Context, user *models.User) error {
	return r.u.do("users.create", func(st *memState) error {
		st.users[user.ID] = *user
		return nil
	})
}

func (r memUsers) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var out models.User
	err := r.u.do("users.get", func(st *memState) error {
		user, ok := st.users[id]
		if !ok {
			return apperror.ErrUserNotFound
		}
		out = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r memUsers) ListAdmins(ctx context.Context) ([]models.User, error) {
	var out []models.User
	err := r.u.do("users.admins", func(st *memState) error {
		for _, user := range st.users {
			if user.Role == valueobject.RoleAdmin && user.IsActive {
				out = append(out, user)
			}
		}
		return nil
	})
	return out, err
}

func (r memUsers) ApplyTotals(ctx context.Context, delta models.UserTotalsDelta) error {
	return r.u.do("users.totals", func(st *memState) error {
		user, ok := st.users[delta.UserID]
		if !ok {
			return apperror.ErrUserNotFound
		}
		user.TotalEarned = user.TotalEarned.Add(delta.EarnedDelta)
		user.TotalSpent = user.TotalSpent.Add(delta.SpentDelta)
		user.CompletedJobs += delta.CompletedJobs
		st.users[user.ID] = user
		return nil
	})
}

func (r memUsers) HasActiveObligations(ctx context.Context, id uuid.UUID) (bool, error) {
	var busy bool
	err := r.u.do("users.obligations", func(st *memState) error {
		for _, job := range st.jobs {
			participant := job.HirerID == id || (job.FreelancerID != nil && *job.FreelancerID == id)
			if participant && !orderClosed(job.Status) {
				busy = true
			}
		}
		for _, p := range st.payments {
			if (p.PayerID == id || p.PayeeID == id) && !paymentClosed(p.Status) {
				busy = true
			}
		}
		return nil
	})
	return busy, err
}

func (r memUsers) Deactivate(ctx context.Context, id uuid.UUID) error {
	return r.u.do("users.deactivate", func(st *memState) error {
		user, ok := st.users[id]
		if !ok || !user.IsActive {
			return apperror.ErrUserNotFound
		}
		user.IsActive = false
		st.users[id] = user
		return nil
	})
}

type memJobs struct{ u *memUoW }

func (r memJobs) Create(ctx context.Context, job *models.Job) error {
	return r.u.do("jobs.create", func(st *memState) error {
		st.jobs[job.ID] = *job
		return nil
	})
}

func (r memJobs) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var out models.Job
	err := r.u.do("jobs.get", func(st *memState) error {
		job, ok := st.jobs[id]
		if !ok {
			return apperror.ErrJobNotFound
		}
		out = job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r memJobs) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	return r.GetByID(ctx, id)
}

func (r memJobs) AssignFreelancer(ctx context.Context, jobID, freelancerID uuid.UUID) (bool, error) {
	var ok bool
	err := r.u.do("jobs.assign", func(st *memState) error {
		job, found := st.jobs[jobID]
		if !found || job.Status != valueobject.OrderStatusOpen || job.FreelancerID != nil {
			return nil
		}
		if r.u.store.takeLostRace("jobs.assign") {
			return nil
		}
		id := freelancerID
		job.FreelancerID = &id
		job.Status = valueobject.OrderStatusInProgress
		st.jobs[jobID] = job
		ok = true
		return nil
	})
	return ok, err
}

func (r memJobs) UpdateStatus(ctx context.Context, jobID uuid.UUID, from, to valueobject.OrderStatus) (bool, error) {
	var ok bool
	err := r.u.do("jobs.status", func(st *memState) error {
		job, found := st.jobs[jobID]
		if !found || job.Status != from {
			return nil
		}
		job.Status = to
		st.jobs[jobID] = job
		ok = true
		return nil
	})
	return ok, err
}

type memApps struct{ u *memUoW }

func (r memApps) Create(ctx context.Context, app *models.JobApplication) error {
	return r.u.do("apps.create", func(st *memState) error {
		for _, existing := range st.apps {
			if existing.JobID == app.JobID && existing.FreelancerID == app.FreelancerID {
				return apperror.Conflict("вы уже откликнулись на этот заказ")
			}
		}
		st.apps[app.ID] = *app
		return nil
	})
}

func (r memApps) GetByID(ctx context.Context, id uuid.UUID) (*models.JobApplication, error) {
	var out models.JobApplication
	err := r.u.do("apps.get", func(st *memState) error {
		app, ok := st.apps[id]
		if !ok {
			return apperror.ErrApplicationNotFound
		}
		out = app
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r memApps) ListByJob(ctx context.Context, jobID uuid.UUID) ([]models.JobApplication, error) {
	var out []models.JobApplication
	err := r.u.do("apps.list", func(st *memState) error {
		for _, app := range st.apps {
			if app.JobID == jobID {
				out = append(out, app)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
		return nil
	})
	return out, err
}

func (r memApps) ExistsForFreelancer(ctx context.Context, jobID, freelancerID uuid.UUID) (bool, error) {
	var exists bool
	err := r.u.do("apps.exists", func(st *memState) error {
		for _, app := range st.apps {
			if app.JobID == jobID && app.FreelancerID == freelancerID {
				exists = true
			}
		}
		return nil
	})
	return exists, err
}

func (r memApps) GetAccepted(ctx context.Context, jobID uuid.UUID) (*models.JobApplication, error) {
	var out *models.JobApplication
	err := r.u.do("apps.accepted", func(st *memState) error {
		for _, app := range st.apps {
			if app.JobID == jobID && app.Accepted() {
				found := app
				out = &found
			}
		}
		return nil
	})
	return out, err
}

func (r memApps) Accept(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.decide(id, true)
}

func (r memApps) Reject(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.decide(id, false)
}

func (r memApps) decide(id uuid.UUID, accept bool) (bool, error) {
	var ok bool
	err := r.u.do("apps.decide", func(st *memState) error {
		app, found := st.apps[id]
		if !found || !app.IsPending() {
			return nil
		}
		if accept && r.u.store.takeLostRace("apps.accept") {
			return nil
		}
		if accept {
			for _, other := range st.apps {
				if other.JobID == app.JobID && other.Accepted() {
					return apperror.Conflict("отклик уже принят")
				}
			}
		}
		now := time.Now()
		app.IsAccepted = &accept
		app.DecidedAt = &now
		st.apps[id] = app
		ok = true
		return nil
	})
	return ok, err
}

func (r memApps) RejectPending(ctx context.Context, jobID uuid.UUID, exceptID *uuid.UUID) ([]models.JobApplication, error) {
	var out []models.JobApplication
	err := r.u.do("apps.reject_pending", func(st *memState) error {
		rejected := false
		now := time.Now()
		for id, app := range st.apps {
			if app.JobID != jobID || !app.IsPending() || (exceptID != nil && id == *exceptID) {
				continue
			}
			app.IsAccepted = &rejected
			app.DecidedAt = &now
			st.apps[id] = app
			out = append(out, app)
		}
		return nil
	})
	return out, err
}

type memGigs struct{ u *memUoW }

func (r memGigs) Create(ctx context.Context, gig *models.Gig) error {
	return r.u.do("gigs.create", func(st *memState) error {
		stored := *gig
		stored.Packages = nil
		st.gigs[gig.ID] = stored
		for _, pkg := range gig.Packages {
			st.packages[pkg.ID] = pkg
		}
		return nil
	})
}

func (r memGigs) GetByID(ctx context.Context, id uuid.UUID) (*models.Gig, error) {
	var out models.Gig
	err := r.u.do("gigs.get", func(st *memState) error {
		gig, ok := st.gigs[id]
		if !ok {
			return apperror.ErrGigNotFound
		}
		out = gig
		for _, pkg := range st.packages {
			if pkg.GigID == id {
				out.Packages = append(out.Packages, pkg)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r memGigs) GetPackage(ctx context.Context, gigID, packageID uuid.UUID) (*models.GigPackage, error) {
	var out models.GigPackage
	err := r.u.do("gigs.package", func(st *memState) error {
		pkg, ok := st.packages[packageID]
		if !ok || pkg.GigID != gigID {
			return apperror.ErrGigPackageNotFound
		}
		out = pkg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r memGigs) CreateOrder(ctx context.Context, order *models.GigOrder) error {
	return r.u.do("gigs.create_order", func(st *memState) error {
		st.orders[order.ID] = *order
		return nil
	})
}

func (r memGigs) GetOrder(ctx context.Context, id uuid.UUID) (*models.GigOrder, error) {
	var out models.GigOrder
	err := r.u.do("gigs.order", func(st *memState) error {
		order, ok := st.orders[id]
		if !ok {
			return apperror.ErrGigOrderNotFound
		}
		out = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r memGigs) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (*models.GigOrder, error) {
	return r.GetOrder(ctx, id)
}

func (r memGigs) UpdateOrderStatus(ctx context.Context, id uuid.UUID, from, to valueobject.OrderStatus) (bool, error) {
	var ok bool
	err := r.u.do("gigs.order_status", func(st *memState) error {
		order, found := st.orders[id]
		if !found || order.Status != from {
			return nil
		}
		order.Status = to
		st.orders[id] = order
		ok = true
		return nil
	})
	return ok, err
}

func (r memGigs) DeactivateByFreelancer(ctx context.Context, freelancerID uuid.UUID) error {
	return r.u.do("gigs.deactivate", func(st *memState) error {
		for id, gig := range st.gigs {
			if gig.FreelancerID == freelancerID {
				gig.IsActive = false
				st.gigs[id] = gig
			}
		}
		return nil
	})
}

type memPayments struct{ u *memUoW }

func (r memPayments) Create(ctx context.Context, payment *models.Payment) error {
	return r.u.do("payments.create", func(st *memState) error {
		for _, existing := range st.payments {
			if paymentClosed(existing.Status) {
				continue
			}
			sameJob := existing.JobID != nil && payment.JobID != nil && *existing.JobID == *payment.JobID
			sameOrder := existing.GigOrderID != nil && payment.GigOrderID != nil && *existing.GigOrderID == *payment.GigOrderID
			if sameJob || sameOrder {
				return apperror.Conflict("по заказу уже есть незавершённый платёж")
			}
		}
		st.payments[payment.ID] = *payment
		return nil
	})
}

func (r memPayments) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var out models.Payment
	err := r.u.do("payments.get", func(st *memState) error {
		p, ok := st.payments[id]
		if !ok {
			return apperror.ErrPaymentNotFound
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r memPayments) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	return r.GetByID(ctx, id)
}

func (r memPayments) Update(ctx context.Context, payment *models.Payment, expected valueobject.PaymentStatus) (bool, error) {
	var ok bool
	err := r.u.do("payments.update", func(st *memState) error {
		current, found := st.payments[payment.ID]
		if !found || current.Status != expected {
			return nil
		}
		if payment.ReleasedAmount.Add(payment.RefundedAmount).GreaterThan(payment.Amount) {
			return fmt.Errorf("check violation: released + refunded > amount")
		}
		st.payments[payment.ID] = *payment
		ok = true
		return nil
	})
	return ok, err
}

func (r memPayments) ListOverdueEscrows(ctx context.Context, now time.Time, limit int) ([]models.Payment, error) {
	var out []models.Payment
	err := r.u.do("payments.overdue", func(st *memState) error {
		for _, p := range st.payments {
			if p.Status == valueobject.PaymentStatusEscrow && p.ReleaseDate != nil && p.ReleaseDate.Before(now) {
				out = append(out, p)
			}
		}
		return nil
	})
	return out, err
}

type memHistory struct{ u *memUoW }

func (r memHistory) Create(ctx context.Context, entry *models.PaymentHistory) error {
	return r.u.do("history.create", func(st *memState) error {
		entry.ID = uuid.New()
		entry.CreatedAt = time.Now()
		st.history = append(st.history, *entry)
		return nil
	})
}

func (r memHistory) ListByPayment(ctx context.Context, paymentID uuid.UUID) ([]models.PaymentHistory, error) {
	var out []models.PaymentHistory
	err := r.u.do("history.list", func(st *memState) error {
		for _, entry := range st.history {
			if entry.PaymentID == paymentID {
				out = append(out, entry)
			}
		}
		return nil
	})
	return out, err
}

type memSettlements struct{ u *memUoW }

func (r memSettlements) Create(ctx context.Context, req *models.SettlementRequest) (bool, error) {
	var created bool
	err := r.u.do("settlements.create", func(st *memState) error {
		if _, exists := st.settlements[req.RequestKey]; exists {
			return nil
		}
		now := time.Now()
		req.ID = uuid.New()
		req.CreatedAt = now
		req.UpdatedAt = now
		st.settlements[req.RequestKey] = *req
		created = true
		return nil
	})
	return created, err
}

func (r memSettlements) GetByKey(ctx context.Context, key string) (*models.SettlementRequest, error) {
	var out models.SettlementRequest
	err := r.u.do("settlements.get", func(st *memState) error {
		req, ok := st.settlements[key]
		if !ok {
			return apperror.ErrSettlementRequestNotFound
		}
		out = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r memSettlements) GetByKeyForUpdate(ctx context.Context, key string) (*models.SettlementRequest, error) {
	return r.GetByKey(ctx, key)
}

func (r memSettlements) ListOpenByPayment(ctx context.Context, paymentID uuid.UUID) ([]models.SettlementRequest, error) {
	var out []models.SettlementRequest
	err := r.u.do("settlements.open", func(st *memState) error {
		for _, req := range st.settlements {
			if req.PaymentID == paymentID &&
				(req.Status == models.SettlementStatusPending || req.Status == models.SettlementStatusConfirmed) {
				out = append(out, req)
			}
		}
		return nil
	})
	return out, err
}

// update находит запрос по id и применяет к нему f.
func (r memSettlements) update(op string, id uuid.UUID, f func(req *models.SettlementRequest) error) error {
	return r.u.do(op, func(st *memState) error {
		for key, req := range st.settlements {
			if req.ID != id {
				continue
			}
			if err := f(&req); err != nil {
				return err
			}
			req.UpdatedAt = time.Now()
			st.settlements[key] = req
			return nil
		}
		return apperror.ErrSettlementRequestNotFound
	})
}

func (r memSettlements) RecordAttempt(ctx context.Context, id uuid.UUID, lastErr string) error {
	return r.update("settlements.attempt", id, func(req *models.SettlementRequest) error {
		req.Attempts++
		req.LastError = &lastErr
		return nil
	})
}

func (r memSettlements) MarkConfirmed(ctx context.Context, confirmed *models.SettlementRequest) error {
	err := r.update("settlements.confirm", confirmed.ID, func(req *models.SettlementRequest) error {
		if req.Status != models.SettlementStatusPending {
			return apperror.Conflict("запрос к шлюзу уже обработан")
		}
		req.Status = models.SettlementStatusConfirmed
		req.EscrowAddress = confirmed.EscrowAddress
		req.TransactionHash = confirmed.TransactionHash
		req.ConfirmedAmount = confirmed.ConfirmedAmount
		return nil
	})
	if err == nil {
		confirmed.Status = models.SettlementStatusConfirmed
	}
	return err
}

func (r memSettlements) MarkApplied(ctx context.Context, id uuid.UUID) error {
	return r.setStatus("settlements.apply", id, models.SettlementStatusConfirmed, models.SettlementStatusApplied)
}

func (r memSettlements) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return r.update("settlements.fail", id, func(req *models.SettlementRequest) error {
		if req.Status != models.SettlementStatusPending {
			return apperror.Conflict("запрос к шлюзу уже обработан")
		}
		req.Status = models.SettlementStatusFailed
		req.LastError = &reason
		return nil
	})
}

func (r memSettlements) setStatus(op string, id uuid.UUID, from, to string) error {
	return r.update(op, id, func(req *models.SettlementRequest) error {
		if req.Status != from {
			return apperror.Conflict("запрос к шлюзу уже обработан")
		}
		req.Status = to
		return nil
	})
}

func (r memSettlements) ListByStatus(ctx context.Context, status string, updatedBefore time.Time, limit int) ([]models.SettlementRequest, error) {
	var out []models.SettlementRequest
	err := r.u.do("settlements.by_status", func(st *memState) error {
		for _, req := range st.settlements {
			if req.Status == status && !req.UpdatedAt.After(updatedBefore) && len(out) < limit {
				out = append(out, req)
			}
		}
		return nil
	})
	return out, err
}

type memNotifications struct{ u *memUoW }

func (r memNotifications) Create(ctx context.Context, n *models.Notification) error {
	return r.u.do("notifications.create", func(st *memState) error {
		n.ID = uuid.New()
		n.CreatedAt = time.Now()
		st.notifications = append(st.notifications, *n)
		return nil
	})
}

func (r memNotifications) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	var out []models.Notification
	err := r.u.do("notifications.list", func(st *memState) error {
		for _, n := range st.notifications {
			if n.UserID == userID && (!unreadOnly || !n.IsRead) {
				out = append(out, n)
			}
		}
		return nil
	})
	if offset >= len(out) {
		return nil, err
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

func (r memNotifications) GetByID(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	var out models.Notification
	err := r.u.do("notifications.get", func(st *memState) error {
		for _, n := range st.notifications {
			if n.ID == id {
				out = n
				return nil
			}
		}
		return apperror.ErrNotificationNotFound
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r memNotifications) MarkAsRead(ctx context.Context, id uuid.UUID) error {
	return r.u.do("notifications.read", func(st *memState) error {
		for i := range st.notifications {
			if st.notifications[i].ID == id {
				st.notifications[i].IsRead = true
				return nil
			}
		}
		return apperror.ErrNotificationNotFound
	})
}

func (r memNotifications) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return r.u.do("notifications.read_all", func(st *memState) error {
		for i := range st.notifications {
			if st.notifications[i].UserID == userID {
				st.notifications[i].IsRead = true
			}
		}
		return nil
	})
}

func (r memNotifications) Delete(ctx context.Context, id uuid.UUID) error {
	return r.u.do("notifications.delete", func(st *memState) error {
		for i := range st.notifications {
			if st.notifications[i].ID == id {
				st.notifications = append(st.notifications[:i], st.notifications[i+1:]...)
				return nil
			}
		}
		return apperror.ErrNotificationNotFound
	})
}

func (r memNotifications) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	count := 0
	err := r.u.do("notifications.count", func(st *memState) error {
		for _, n := range st.notifications {
			if n.UserID == userID && !n.IsRead {
				count++
			}
		}
		return nil
	})
	return count, err
}

// fakeGateway подтверждает любые запросы и считает вызовы по ключу.
type fakeGateway struct {
	mu sync.Mutex
	// err возвращается из каждого вызова, пока не сброшен.
	err error
	// fundAmount подменяет подтверждённую сумму пополнения.
	fundAmount *decimal.Decimal
	calls      map[string]int
	lookups    map[string]*gateway.LookupResult
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{calls: map[string]int{}, lookups: map[string]*gateway.LookupResult{}}
}

func (g *fakeGateway) record(action, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls[action]++
	g.calls[key]++
	return g.err
}

func (g *fakeGateway) setErr(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
}

func (g *fakeGateway) count(keyOrAction string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[keyOrAction]
}

func (g *fakeGateway) Fund(ctx context.Context, req gateway.FundRequest) (*gateway.Attestation, error) {
	if err := g.record("fund", req.RequestKey); err != nil {
		return nil, err
	}
	amount := req.Amount
	if g.fundAmount != nil {
		amount = *g.fundAmount
	}
	return &gateway.Attestation{
		EscrowAddress:   "Esc" + req.RequestKey[:12],
		TransactionHash: "tx-fund-" + req.RequestKey[:8],
		Amount:          decimal.NullDecimal{Decimal: amount, Valid: true},
	}, nil
}

func (g *fakeGateway) Release(ctx context.Context, requestKey, escrowAddress string) (*gateway.Attestation, error) {
	if err := g.record("release", requestKey); err != nil {
		return nil, err
	}
	return &gateway.Attestation{EscrowAddress: escrowAddress, TransactionHash: "tx-release-" + requestKey[:8]}, nil
}

func (g *fakeGateway) RefundOrSplit(ctx context.Context, requestKey, escrowAddress string, payerAmount, payeeAmount decimal.Decimal) (*gateway.Attestation, error) {
	if err := g.record("refund", requestKey); err != nil {
		return nil, err
	}
	return &gateway.Attestation{EscrowAddress: escrowAddress, TransactionHash: "tx-refund-" + requestKey[:8]}, nil
}

func (g *fakeGateway) Dispute(ctx context.Context, requestKey, escrowAddress, reason string) (*gateway.Attestation, error) {
	if err := g.record("dispute", requestKey); err != nil {
		return nil, err
	}
	return &gateway.Attestation{EscrowAddress: escrowAddress, TransactionHash: "tx-dispute-" + requestKey[:8]}, nil
}

func (g *fakeGateway) Lookup(ctx context.Context, requestKey string) (*gateway.LookupResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if res, ok := g.lookups[requestKey]; ok {
		return res, nil
	}
	return &gateway.LookupResult{State: gateway.LookupUnknown}, nil
}

// recordingPublisher запоминает опубликованные уведомления.
type recordingPublisher struct {
	mu        sync.Mutex
	published []models.Notification
}

func (p *recordingPublisher) Publish(ctx context.Context, notifications []models.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, notifications...)
}

func (p *recordingPublisher) ofType(kind string) []models.Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []models.Notification
	for _, n := range p.published {
		if n.Type == kind {
			out = append(out, n)
		}
	}
	return out
}

func orderClosed(s valueobject.OrderStatus) bool {
	return s == valueobject.OrderStatusCompleted || s == valueobject.OrderStatusCancelled
}

func paymentClosed(s valueobject.PaymentStatus) bool {
	return s == valueobject.PaymentStatusReleased || s == valueobject.PaymentStatusRefunded
}
