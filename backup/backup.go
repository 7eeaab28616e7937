// Package backup produces scheduled pg_dump archives of the CRM database
// and prunes old ones.
package backup

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"beccrm/config"
	"beccrm/utils"
)

// State of the backup manager.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateError   State = "error"
)

const backupPrefix = "bec_crm_backup_"

// Status is reported on the admin backup endpoint.
type Status struct {
	State      State      `json:"state"`
	LastBackup *time.Time `json:"last_backup,omitempty"`
	LastFile   string     `json:"last_file,omitempty"`
	Error      string     `json:"error,omitempty"`
	InProgress bool       `json:"in_progress"`
}

// Manager runs pg_dump backups with retention pruning.
type Manager struct {
	mu            sync.RWMutex
	status        Status
	dir           string
	retentionDays int
	log           *zap.Logger
}

func NewManager() *Manager {
	return &Manager{
		status:        Status{State: StateIdle},
		dir:           config.AppConfig.BackupDir,
		retentionDays: config.AppConfig.BackupRetentionDays,
		log:           utils.GetLogger(),
	}
}

func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Manager) setState(s State, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status.State = s
	m.status.Error = errMsg
	m.status.InProgress = s == StateRunning
}

// Run creates one backup archive and prunes expired ones. Concurrent runs
// are rejected.
func (m *Manager) Run(ctx context.Context) error {
	m.mu.Lock()
	if m.status.InProgress {
		m.mu.Unlock()
		return fmt.Errorf("backup already in progress")
	}
	m.status.State = StateRunning
	m.status.InProgress = true
	m.mu.Unlock()

	if err := m.dump(ctx); err != nil {
		m.setState(StateError, err.Error())
		return err
	}

	if err := m.prune(); err != nil {
		m.log.Warn("backup pruning failed", zap.Error(err))
	}

	m.setState(StateIdle, "")
	return nil
}

func (m *Manager) dump(ctx context.Context) error {
	if err := os.MkdirAll(m.dir, 0o750); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	name := backupPrefix + time.Now().Format("20060102_150405") + ".dump"
	path := filepath.Join(m.dir, name)

	cfg := config.AppConfig
	cmd := exec.CommandContext(ctx, "pg_dump",
		"-h", cfg.DBHost,
		"-p", cfg.DBPort,
		"-U", cfg.DBUser,
		"-d", cfg.DBName,
		"-Fc", // custom format, compressed
		"-f", path,
	)
	cmd.Env = append(os.Environ(), "PGPASSWORD="+cfg.DBPassword)

	out, err := cmd.CombinedOutput()
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("pg_dump failed: %w: %s", err, strings.TrimSpace(string(out)))
	}

	now := time.Now()
	m.mu.Lock()
	m.status.LastBackup = &now
	m.status.LastFile = name
	m.mu.Unlock()

	m.log.Info("database backup created", zap.String("file", name))
	return nil
}

// prune removes backup archives older than the retention window.
func (m *Manager) prune() error {
	cutoff := time.Now().AddDate(0, 0, -m.retentionDays)

	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), backupPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(m.dir, entry.Name())); err != nil {
				m.log.Warn("failed to remove expired backup",
					zap.String("file", entry.Name()), zap.Error(err))
				continue
			}
			m.log.Info("removed expired backup", zap.String("file", entry.Name()))
		}
	}
	return nil
}
