package sqlitestore

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	_ "modernc.org/sqlite"

	"github.com/durableio/rewind/backend"
	"github.com/durableio/rewind/backend/history"
	"github.com/durableio/rewind/backend/metadata"
	"github.com/durableio/rewind/backend/metrics"
	"github.com/durableio/rewind/core"
	"github.com/durableio/rewind/internal/metrickeys"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// NewInMemoryBackend creates a sqlite backend backed by a private in-memory
// database. Useful for tests.
func NewInMemoryBackend(opts ...option) backend.Backend {
	b := newSqliteBackend("file::memory:?mode=memory&cache=shared", opts...)

	b.db.SetMaxOpenConns(1)

	return b
}

// NewSqliteBackend creates a backend storing all state in the sqlite database
// at the given path.
func NewSqliteBackend(path string, opts ...option) backend.Backend {
	return newSqliteBackend(fmt.Sprintf("file:%v?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path), opts...)
}

func newSqliteBackend(dsn string, opts ...option) *sqliteBackend {
	options := &options{
		Options:         backend.ApplyOptions(),
		ApplyMigrations: true,
	}

	for _, opt := range opts {
		opt(options)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		panic(err)
	}

	b := &sqliteBackend{
		db:         db,
		workerName: fmt.Sprintf("worker-%v", uuid.NewString()),
		options:    options,
	}

	if options.ApplyMigrations {
		if err := b.Migrate(); err != nil {
			panic(err)
		}
	}

	return b
}

type sqliteBackend struct {
	db         *sql.DB
	workerName string
	options    *options
}

var _ backend.Backend = (*sqliteBackend)(nil)

// Migrate applies any pending database migrations.
func (sb *sqliteBackend) Migrate() error {
	dbi, err := migratesqlite.WithInstance(sb.db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("creating migration instance: %w", err)
	}

	migrations, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("creating migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", migrations, "sqlite", dbi)
	if err != nil {
		return fmt.Errorf("creating migration: %w", err)
	}

	if err := m.Up(); err != nil {
		if !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("running migrations: %w", err)
		}
	}

	return nil
}

func (sb *sqliteBackend) Tracer() trace.Tracer {
	return sb.options.TracerProvider.Tracer(backend.TracerName)
}

func (sb *sqliteBackend) Metrics() metrics.Client {
	return sb.options.Metrics.WithTags(metrics.Tags{metrickeys.Backend: "sqlite"})
}

func (sb *sqliteBackend) Options() *backend.Options {
	return &sb.options.Options
}

func (sb *sqliteBackend) Close() error {
	return sb.db.Close()
}

func (sb *sqliteBackend) CreateWorkflowInstance(ctx context.Context, instance *core.WorkflowInstance, event *history.Event) error {
	tx, err := sb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var md *metadata.WorkflowMetadata
	if a, ok := event.Attributes.(*history.ExecutionStartedAttributes); ok {
		md = a.Metadata
	}

	if err := createInstance(ctx, tx, instance, md, false); err != nil {
		return err
	}

	// Initial history is empty, store only the start event
	if err := insertPendingEvents(ctx, tx, instance, []*history.Event{event}); err != nil {
		return fmt.Errorf("inserting start event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("creating workflow instance: %w", err)
	}

	sb.options.Metrics.Counter(metrickeys.WorkflowInstanceCreated, metrics.Tags{}, 1)

	return nil
}

func createInstance(ctx context.Context, tx *sql.Tx, wfi *core.WorkflowInstance, md *metadata.WorkflowMetadata, ignoreDuplicate bool) error {
	var parentInstanceID, parentExecutionID *string
	var parentEventID *int64
	if wfi.SubWorkflow() {
		parentInstanceID = &wfi.Parent.InstanceID
		parentExecutionID = &wfi.Parent.ExecutionID
		parentEventID = &wfi.ParentEventID
	}

	mdJSON, err := json.Marshal(md)
	if err != nil {
		return fmt.Errorf("serializing metadata: %w", err)
	}

	res, err := tx.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO instances
			(id, execution_id, parent_instance_id, parent_execution_id, parent_schedule_event_id, metadata, state)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
		wfi.InstanceID,
		wfi.ExecutionID,
		parentInstanceID,
		parentExecutionID,
		parentEventID,
		mdJSON,
		core.WorkflowInstanceStateActive,
	)
	if err != nil {
		return fmt.Errorf("inserting workflow instance: %w", err)
	}

	if !ignoreDuplicate {
		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}

		if rows != 1 {
			return backend.ErrInstanceAlreadyExists
		}
	}

	return nil
}

func (sb *sqliteBackend) CancelWorkflowInstance(ctx context.Context, instance *core.WorkflowInstance, cancelEvent *history.Event) error {
	tx, err := sb.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertPendingEvents(ctx, tx, instance, []*history.Event{cancelEvent}); err != nil {
		return fmt.Errorf("inserting cancellation event: %w", err)
	}

	// Recursively cancel any active sub-workflow instances
	toCancel := []*core.WorkflowInstance{instance}
	for len(toCancel) > 0 {
		parent := toCancel[0]
		toCancel = toCancel[1:]

		rows, err := tx.QueryContext(
			ctx,
			`SELECT id, execution_id FROM instances
				WHERE parent_instance_id = ? AND parent_execution_id = ? AND completed_at IS NULL`,
			parent.InstanceID,
			parent.ExecutionID,
		)
		if err != nil {
			return fmt.Errorf("finding sub-workflow instances: %w", err)
		}

		var children []*core.WorkflowInstance
		for rows.Next() {
			var id, executionID string
			if err := rows.Scan(&id, &executionID); err != nil {
				rows.Close()
				return fmt.Errorf("scanning sub-workflow instance: %w", err)
			}

			children = append(children, core.NewWorkflowInstance(id, executionID))
		}
		rows.Close()

		for _, child := range children {
			if err := insertPendingEvents(ctx, tx, child, []*history.Event{cancelEvent}); err != nil {
				return fmt.Errorf("inserting cancellation event: %w", err)
			}
		}

		toCancel = append(toCancel, children...)
	}

	return tx.Commit()
}

func (sb *sqliteBackend) GetWorkflowInstanceState(ctx context.Context, instance *core.WorkflowInstance) (core.WorkflowInstanceState, error) {
	row := sb.db.QueryRowContext(
		ctx,
		"SELECT state FROM instances WHERE id = ? AND execution_id = ?",
		instance.InstanceID,
		instance.ExecutionID,
	)

	var state core.WorkflowInstanceState
	if err := row.Scan(&state); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.WorkflowInstanceStateActive, backend.ErrInstanceNotFound
		}

		return core.WorkflowInstanceStateActive, err
	}

	return state, nil
}

func (sb *sqliteBackend) GetWorkflowInstanceHistory(ctx context.Context, instance *core.WorkflowInstance, lastSequenceID *int64) ([]*history.Event, error) {
	tx, err := sb.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	h, err := getHistory(ctx, tx, instance, lastSequenceID)
	if err != nil {
		return nil, fmt.Errorf("getting workflow history: %w", err)
	}

	return h, nil
}

func (sb *sqliteBackend) SignalWorkflow(ctx context.Context, instanceID string, event *history.Event) error {
	tx, err := sb.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Signals target the current execution of the instance
	row := tx.QueryRowContext(
		ctx,
		`SELECT execution_id FROM instances WHERE id = ? AND completed_at IS NULL ORDER BY created_at DESC LIMIT 1`,
		instanceID,
	)

	var executionID string
	if err := row.Scan(&executionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return backend.ErrInstanceNotFound
		}

		return err
	}

	instance := core.NewWorkflowInstance(instanceID, executionID)

	if err := insertPendingEvents(ctx, tx, instance, []*history.Event{event}); err != nil {
		return fmt.Errorf("inserting signal event: %w", err)
	}

	return tx.Commit()
}

func (sb *sqliteBackend) GetWorkflowTask(ctx context.Context) (*backend.WorkflowTask, error) {
	tx, err := sb.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := time.Now()
	row := tx.QueryRowContext(
		ctx,
		`UPDATE instances
			SET locked_until = ?, worker = ?
			WHERE rowid = (
				SELECT rowid FROM instances i
					WHERE
						(locked_until IS NULL OR locked_until < ?)
						AND (sticky_until IS NULL OR sticky_until < ? OR worker = ?)
						AND state = ?
						AND EXISTS (
							SELECT 1
								FROM pending_events
								WHERE instance_id = i.id AND execution_id = i.execution_id
									AND (visible_at IS NULL OR visible_at <= ?)
						)
					LIMIT 1
			) RETURNING id, execution_id, parent_instance_id, parent_execution_id, parent_schedule_event_id, metadata, state`,
		now.Add(sb.options.WorkflowLockTimeout),
		sb.workerName,
		now,
		now,
		sb.workerName,
		core.WorkflowInstanceStateActive,
		now,
	)

	var instanceID, executionID string
	var parentInstanceID, parentExecutionID *string
	var parentEventID *int64
	var mdJSON []byte
	var state core.WorkflowInstanceState
	if err := row.Scan(&instanceID, &executionID, &parentInstanceID, &parentExecutionID, &parentEventID, &mdJSON, &state); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("locking workflow task: %w", err)
	}

	var wfi *core.WorkflowInstance
	if parentInstanceID != nil {
		wfi = core.NewSubWorkflowInstance(instanceID, executionID, core.NewWorkflowInstance(*parentInstanceID, *parentExecutionID), *parentEventID)
	} else {
		wfi = core.NewWorkflowInstance(instanceID, executionID)
	}

	var md *metadata.WorkflowMetadata
	if len(mdJSON) > 0 {
		if err := json.Unmarshal(mdJSON, &md); err != nil {
			return nil, fmt.Errorf("deserializing metadata: %w", err)
		}
	}

	pendingEvents, err := getPendingEvents(ctx, tx, wfi)
	if err != nil {
		return nil, fmt.Errorf("getting pending events: %w", err)
	}

	if len(pendingEvents) == 0 {
		return nil, nil
	}

	var lastSequenceID int64
	row = tx.QueryRowContext(
		ctx,
		"SELECT sequence_id FROM history WHERE instance_id = ? AND execution_id = ? ORDER BY rowid DESC LIMIT 1",
		instanceID,
		executionID,
	)
	if err := row.Scan(&lastSequenceID); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("getting most recent sequence id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &backend.WorkflowTask{
		ID:                    uuid.NewString(),
		WorkflowInstance:      wfi,
		WorkflowInstanceState: state,
		Metadata:              md,
		LastSequenceID:        lastSequenceID,
		NewEvents:             pendingEvents,
	}, nil
}

func (sb *sqliteBackend) CompleteWorkflowTask(
	ctx context.Context, task *backend.WorkflowTask, state core.WorkflowInstanceState,
	executedEvents, activityEvents, timerEvents []*history.Event, workflowEvents []*history.WorkflowEvent,
) error {
	tx, err := sb.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	instance := task.WorkflowInstance

	var completedAt *time.Time
	if state != core.WorkflowInstanceStateActive {
		t := time.Now()
		completedAt = &t
	}

	// Unlock the instance, keep it sticky to this worker
	if res, err := tx.ExecContext(
		ctx,
		`UPDATE instances SET locked_until = NULL, sticky_until = ?, completed_at = ?, state = ?
			WHERE id = ? AND execution_id = ? AND worker = ?`,
		time.Now().Add(sb.options.WorkflowLockTimeout),
		completedAt,
		state,
		instance.InstanceID,
		instance.ExecutionID,
		sb.workerName,
	); err != nil {
		return fmt.Errorf("unlocking workflow instance: %w", err)
	} else if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("checking for unlocked workflow instances: %w", err)
	} else if n != 1 {
		return errors.New("could not find workflow instance to unlock")
	}

	// Remove handled events
	if len(executedEvents) > 0 {
		args := make([]interface{}, 0, len(executedEvents)+2)
		args = append(args, instance.InstanceID, instance.ExecutionID)
		for _, e := range executedEvents {
			args = append(args, e.ID)
		}

		if _, err := tx.ExecContext(
			ctx,
			fmt.Sprintf(
				`DELETE FROM pending_events WHERE instance_id = ? AND execution_id = ? AND id IN (?%v)`,
				strings.Repeat(",?", len(executedEvents)-1)),
			args...,
		); err != nil {
			return fmt.Errorf("deleting handled events: %w", err)
		}
	}

	// Checkpoint executed events to history
	if err := insertHistoryEvents(ctx, tx, instance, executedEvents); err != nil {
		return fmt.Errorf("inserting history events: %w", err)
	}

	// Schedule activities
	for _, event := range activityEvents {
		if err := scheduleActivity(ctx, tx, instance, event); err != nil {
			return fmt.Errorf("scheduling activity: %w", err)
		}
	}

	// Timer events become visible once due
	if err := insertPendingEvents(ctx, tx, instance, timerEvents); err != nil {
		return fmt.Errorf("inserting timer events: %w", err)
	}

	// Route events to other workflow instances
	for targetInstance, events := range history.EventsByWorkflowInstance(workflowEvents) {
		target := targetInstance

		for _, event := range events {
			if event.HistoryEvent.Type == history.EventType_WorkflowExecutionStarted {
				var md *metadata.WorkflowMetadata
				if a, ok := event.HistoryEvent.Attributes.(*history.ExecutionStartedAttributes); ok {
					md = a.Metadata
				}

				if err := createInstance(ctx, tx, &target, md, true); err != nil {
					return err
				}
			}

			if err := insertPendingEvents(ctx, tx, &target, []*history.Event{event.HistoryEvent}); err != nil {
				return fmt.Errorf("routing workflow event: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	sb.options.Metrics.Counter(metrickeys.WorkflowTaskProcessed, metrics.Tags{}, 1)

	return nil
}

func (sb *sqliteBackend) GetActivityTask(ctx context.Context) (*backend.ActivityTask, error) {
	tx, err := sb.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := time.Now()
	row := tx.QueryRowContext(
		ctx,
		`UPDATE activities
			SET locked_until = ?, worker = ?
			WHERE rowid = (
				SELECT rowid FROM activities WHERE locked_until IS NULL OR locked_until < ? LIMIT 1
			) RETURNING id, instance_id, execution_id, event_type, timestamp, schedule_event_id, attributes, visible_at`,
		now.Add(sb.options.ActivityLockTimeout),
		sb.workerName,
		now,
	)

	var instanceID, executionID string
	var attributes []byte
	event := &history.Event{}

	if err := row.Scan(&event.ID, &instanceID, &executionID, &event.Type, &event.Timestamp, &event.ScheduleEventID, &attributes, &event.VisibleAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("locking activity task: %w", err)
	}

	a, err := history.DeserializeAttributes(event.Type, attributes)
	if err != nil {
		return nil, fmt.Errorf("deserializing attributes: %w", err)
	}

	event.Attributes = a

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &backend.ActivityTask{
		ID:               event.ID,
		WorkflowInstance: core.NewWorkflowInstance(instanceID, executionID),
		Event:            event,
	}, nil
}

func (sb *sqliteBackend) CompleteActivityTask(ctx context.Context, task *backend.ActivityTask, result *history.Event) error {
	tx, err := sb.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	instance := task.WorkflowInstance

	// Remove activity
	if res, err := tx.ExecContext(
		ctx,
		`DELETE FROM activities WHERE instance_id = ? AND execution_id = ? AND id = ? AND worker = ?`,
		instance.InstanceID,
		instance.ExecutionID,
		task.ID,
		sb.workerName,
	); err != nil {
		return fmt.Errorf("removing activity: %w", err)
	} else if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("checking for removed activities: %w", err)
	} else if n != 1 {
		return errors.New("could not find activity to remove")
	}

	// Deliver the result to the workflow instance
	if err := insertPendingEvents(ctx, tx, instance, []*history.Event{result}); err != nil {
		return fmt.Errorf("inserting activity result: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	sb.options.Metrics.Counter(metrickeys.ActivityTaskProcessed, metrics.Tags{}, 1)

	return nil
}

func scheduleActivity(ctx context.Context, tx *sql.Tx, instance *core.WorkflowInstance, event *history.Event) error {
	a, err := history.SerializeAttributes(event.Attributes)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO activities
			(id, instance_id, execution_id, event_type, timestamp, schedule_event_id, attributes, visible_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		instance.InstanceID,
		instance.ExecutionID,
		event.Type,
		event.Timestamp,
		event.ScheduleEventID,
		a,
		event.VisibleAt,
	)

	return err
}
