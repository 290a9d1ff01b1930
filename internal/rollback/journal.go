// Package rollback keeps the inverse of every block so a session can be undone.
// Package rollback 保存每次封禁的逆操作，以便撤销整个会话。
package rollback

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/netxfw/netguard/internal/backend"
	"github.com/netxfw/netguard/internal/utils/logger"
	"github.com/netxfw/netguard/pkg/errors"
	"github.com/netxfw/netguard/pkg/storage"
)

// Result summarizes a replay.
// Result 汇总一次回放。
type Result struct {
	Applied int               `json:"applied"`
	Failed  []backend.Command `json:"failed"`
}

// Err returns a *errors.ReplayError when any inverse failed.
// Err 在任一逆操作失败时返回 *errors.ReplayError。
func (r Result) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	failed := make([][]string, len(r.Failed))
	for i, cmd := range r.Failed {
		failed[i] = cmd
	}
	return &errors.ReplayError{Applied: r.Applied, Failed: failed}
}

// Journal replays inverses against a backend and keeps the store in step.
// Journal 针对后端回放逆操作，并保持存储同步。
type Journal struct {
	records storage.Journal
	store   storage.Store
	backend backend.Backend
}

func New(records storage.Journal, store storage.Store, b backend.Backend) *Journal {
	return &Journal{records: records, store: store, backend: b}
}

// Append stores the inverse command for a block of (kind, value).
// Append 保存 (kind, value) 封禁的逆命令。
func (j *Journal) Append(ctx context.Context, cmd backend.Command, kind storage.TargetKind, value string) (storage.JournalRecord, error) {
	rec := storage.JournalRecord{
		ID:        uuid.NewString(),
		Command:   cmd,
		Kind:      kind,
		Value:     value,
		CreatedAt: time.Now(),
	}
	if err := j.records.AppendJournal(ctx, rec); err != nil {
		return rec, fmt.Errorf("append rollback record: %w", err)
	}
	return rec, nil
}

// Entries returns the pending records, oldest first.
// Entries 返回待回滚的记录，按从旧到新排序。
func (j *Journal) Entries(ctx context.Context) ([]storage.JournalRecord, error) {
	return j.records.JournalEntries(ctx)
}

// ReplayAndClear runs every inverse newest first, continuing past failures,
// then truncates the journal whatever the outcome. Each successful inverse
// also forgets the entry it released. Once started, the replay ignores
// cancellation of ctx; every backend call carries its own timeout.
// ReplayAndClear 从新到旧执行每个逆操作，失败时继续，
// 然后无论结果如何都清空日志。每个成功的逆操作也会删除其释放的条目。
// 回放开始后忽略 ctx 的取消；每次后端调用都有自己的超时。
func (j *Journal) ReplayAndClear(ctx context.Context) (Result, error) {
	ctx = context.WithoutCancel(ctx)
	log := logger.Get(ctx)

	records, err := j.records.JournalEntries(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("read rollback journal: %w", err)
	}

	var result Result
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		cmd := backend.Command(rec.Command)
		if err := j.backend.Run(ctx, cmd); err != nil {
			log.Warnw("rollback command failed", "id", rec.ID, "command", cmd.String(), "error", err)
			result.Failed = append(result.Failed, cmd)
			continue
		}
		result.Applied++
		if rec.Kind.Valid() && rec.Value != "" {
			if _, err := j.store.Forget(ctx, rec.Kind, rec.Value); err != nil {
				log.Warnw("rollback could not forget entry", "kind", rec.Kind, "value", rec.Value, "error", err)
			}
		}
	}

	if err := j.records.TruncateJournal(ctx); err != nil {
		return result, fmt.Errorf("truncate rollback journal: %w", err)
	}
	return result, nil
}
