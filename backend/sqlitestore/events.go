package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/durableio/rewind/backend/history"
	"github.com/durableio/rewind/core"
)

func getPendingEvents(ctx context.Context, tx *sql.Tx, instance *core.WorkflowInstance) ([]*history.Event, error) {
	now := time.Now()
	rows, err := tx.QueryContext(
		ctx,
		`SELECT id, event_type, timestamp, schedule_event_id, attributes, visible_at
			FROM pending_events
			WHERE instance_id = ? AND execution_id = ? AND (visible_at IS NULL OR visible_at <= ?)
			ORDER BY rowid`,
		instance.InstanceID,
		instance.ExecutionID,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("getting pending events: %w", err)
	}
	defer rows.Close()

	var pendingEvents []*history.Event
	for rows.Next() {
		event, err := scanEvent(rows, false)
		if err != nil {
			return nil, fmt.Errorf("reading pending event: %w", err)
		}

		pendingEvents = append(pendingEvents, event)
	}

	return pendingEvents, rows.Err()
}

func getHistory(ctx context.Context, tx *sql.Tx, instance *core.WorkflowInstance, lastSequenceID *int64) ([]*history.Event, error) {
	var rows *sql.Rows
	var err error
	if lastSequenceID != nil {
		rows, err = tx.QueryContext(
			ctx,
			`SELECT id, sequence_id, event_type, timestamp, schedule_event_id, attributes, visible_at
				FROM history
				WHERE instance_id = ? AND execution_id = ? AND sequence_id > ?
				ORDER BY sequence_id`,
			instance.InstanceID,
			instance.ExecutionID,
			*lastSequenceID,
		)
	} else {
		rows, err = tx.QueryContext(
			ctx,
			`SELECT id, sequence_id, event_type, timestamp, schedule_event_id, attributes, visible_at
				FROM history
				WHERE instance_id = ? AND execution_id = ?
				ORDER BY sequence_id`,
			instance.InstanceID,
			instance.ExecutionID,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("getting history: %w", err)
	}
	defer rows.Close()

	var events []*history.Event
	for rows.Next() {
		event, err := scanEvent(rows, true)
		if err != nil {
			return nil, fmt.Errorf("reading history event: %w", err)
		}

		events = append(events, event)
	}

	return events, rows.Err()
}

func scanEvent(rows *sql.Rows, withSequenceID bool) (*history.Event, error) {
	var attributes []byte

	event := &history.Event{}

	var err error
	if withSequenceID {
		err = rows.Scan(&event.ID, &event.SequenceID, &event.Type, &event.Timestamp, &event.ScheduleEventID, &attributes, &event.VisibleAt)
	} else {
		err = rows.Scan(&event.ID, &event.Type, &event.Timestamp, &event.ScheduleEventID, &attributes, &event.VisibleAt)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning event: %w", err)
	}

	a, err := history.DeserializeAttributes(event.Type, attributes)
	if err != nil {
		return nil, fmt.Errorf("deserializing attributes: %w", err)
	}

	event.Attributes = a

	return event, nil
}

func insertPendingEvents(ctx context.Context, tx *sql.Tx, instance *core.WorkflowInstance, events []*history.Event) error {
	return insertEvents(ctx, tx, "pending_events", false, instance, events)
}

func insertHistoryEvents(ctx context.Context, tx *sql.Tx, instance *core.WorkflowInstance, events []*history.Event) error {
	return insertEvents(ctx, tx, "history", true, instance, events)
}

func insertEvents(ctx context.Context, tx *sql.Tx, tableName string, withSequenceID bool, instance *core.WorkflowInstance, events []*history.Event) error {
	columns := "(id, instance_id, execution_id, event_type, timestamp, schedule_event_id, attributes, visible_at)"
	placeholder := "(?, ?, ?, ?, ?, ?, ?, ?)"
	fields := 8
	if withSequenceID {
		columns = "(id, sequence_id, instance_id, execution_id, event_type, timestamp, schedule_event_id, attributes, visible_at)"
		placeholder = "(?, ?, ?, ?, ?, ?, ?, ?, ?)"
		fields = 9
	}

	const batchSize = 20
	for batchStart := 0; batchStart < len(events); batchStart += batchSize {
		batchEnd := batchStart + batchSize
		if batchEnd > len(events) {
			batchEnd = len(events)
		}
		batchEvents := events[batchStart:batchEnd]

		query := "INSERT INTO " + tableName + " " + columns + " VALUES " + placeholder +
			strings.Repeat(", "+placeholder, len(batchEvents)-1)

		args := make([]interface{}, 0, len(batchEvents)*fields)

		for _, event := range batchEvents {
			a, err := history.SerializeAttributes(event.Attributes)
			if err != nil {
				return err
			}

			if withSequenceID {
				args = append(args, event.ID, event.SequenceID)
			} else {
				args = append(args, event.ID)
			}

			args = append(args, instance.InstanceID, instance.ExecutionID, event.Type, event.Timestamp, event.ScheduleEventID, a, event.VisibleAt)
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}

	return nil
}
