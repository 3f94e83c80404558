package rpc

import (
	stdcontext "context"

	"github.com/godbus/dbus/v5"

	"activitywarden/internal/busnames"
	"activitywarden/internal/context"
	"activitywarden/internal/logging"
	"activitywarden/internal/model"
)

const durationChangedMember = "DurationChanged"

// ContextService exports internal/context.Context's RPC-facing operations
// on the session bus at /com/activity_warden/user_daemon/DaemonContext.
type ContextService struct {
	conn  *dbus.Conn
	ctx   *context.Context
	audit *logging.AuditLogger
}

// NewContextService wraps ctx for D-Bus export. conn is retained so the
// service can emit DurationChanged signals from the same connection it
// was exported on. audit may be nil, disabling audit records for timer
// edits and lock transitions.
func NewContextService(conn *dbus.Conn, ctx *context.Context, audit *logging.AuditLogger) *ContextService {
	return &ContextService{conn: conn, ctx: ctx, audit: audit}
}

func (s *ContextService) auditTimerChange(eventType logging.AuditEventType, t model.Timer) {
	if s.audit == nil {
		return
	}
	target := t.Host.String() + "/" + t.DisplayName
	if err := s.audit.LogTimerChange(stdcontext.Background(), eventType, target, map[string]interface{}{
		"time_limit": t.TimeLimit,
	}); err != nil {
		logging.Warn("rpc: audit timer change", "error", err)
	}
}

func persistenceError(err error) *dbus.Error {
	return dbus.NewError(
		busnames.InterfaceName(busnames.InterfaceDaemonContext)+".PersistenceError",
		[]interface{}{err.Error()},
	)
}

// GetDaemonSnapshot returns the current timer set and today's durations.
func (s *ContextService) GetDaemonSnapshot() (WireDaemonSnapshot, *dbus.Error) {
	snap, err := s.ctx.GetDaemonSnapshot()
	if err != nil {
		return WireDaemonSnapshot{}, persistenceError(err)
	}
	return toWireSnapshot(snap), nil
}

// InsertTimer adds a new timer.
func (s *ContextService) InsertTimer(timer WireTimer) *dbus.Error {
	t, err := fromWireTimer(timer)
	if err != nil {
		return persistenceError(err)
	}
	if err := s.ctx.InsertTimer(t); err != nil {
		return persistenceError(err)
	}
	s.auditTimerChange(logging.AuditEventTimerInsert, t)
	return nil
}

// DeleteTimer removes every timer matching (host, display_name).
func (s *ContextService) DeleteTimer(timer WireTimer) *dbus.Error {
	t, err := fromWireTimer(timer)
	if err != nil {
		return persistenceError(err)
	}
	if err := s.ctx.DeleteTimer(t); err != nil {
		return persistenceError(err)
	}
	s.auditTimerChange(logging.AuditEventTimerDelete, t)
	return nil
}

// UpdateTimer replaces every timer matching (host, display_name).
func (s *ContextService) UpdateTimer(timer WireTimer) *dbus.Error {
	t, err := fromWireTimer(timer)
	if err != nil {
		return persistenceError(err)
	}
	if err := s.ctx.UpdateTimer(t); err != nil {
		return persistenceError(err)
	}
	s.auditTimerChange(logging.AuditEventTimerUpdate, t)
	return nil
}

// IsLocked reports whether the session is currently password-locked.
func (s *ContextService) IsLocked() (bool, *dbus.Error) {
	locked, err := s.ctx.IsLocked()
	if err != nil {
		return false, persistenceError(err)
	}
	return locked, nil
}

// ProcessPasswordSubmission submits a plaintext password attempt; the
// returned bool means "unlocked now".
func (s *ContextService) ProcessPasswordSubmission(plain string) (bool, *dbus.Error) {
	wasLocked, err := s.ctx.IsLocked()
	if err != nil {
		return false, persistenceError(err)
	}
	unlocked, err := s.ctx.ProcessPasswordSubmission(plain)
	if err != nil {
		return false, persistenceError(err)
	}
	if s.audit != nil {
		var aerr error
		switch {
		case !wasLocked:
			aerr = s.audit.LogLockChange(stdcontext.Background(), false)
		case unlocked:
			aerr = s.audit.LogLockChange(stdcontext.Background(), true)
		default:
			aerr = s.audit.LogUnlockDenied(stdcontext.Background())
		}
		if aerr != nil {
			logging.Warn("rpc: audit lock transition", "error", aerr)
		}
	}
	return unlocked, nil
}

// EmitDurationChanged broadcasts fc as a DurationChanged signal. Called by
// the scheduler, never by an RPC handler.
func (s *ContextService) EmitDurationChanged(fc model.FocusChange) error {
	path := dbus.ObjectPath(busnames.ObjectPath(model.HostUserDaemon, busnames.InterfaceDaemonContext))
	return s.conn.Emit(path,
		busnames.InterfaceName(busnames.InterfaceDaemonContext)+"."+durationChangedMember,
		toWireFocusChange(fc),
	)
}

// ExportContextService exports s at its well-known object path under the
// DaemonContext interface on conn.
func ExportContextService(conn *dbus.Conn, s *ContextService) error {
	path := dbus.ObjectPath(busnames.ObjectPath(model.HostUserDaemon, busnames.InterfaceDaemonContext))
	return conn.Export(s, path, busnames.InterfaceName(busnames.InterfaceDaemonContext))
}
