/*
Package dbnotify is a backchannel from the database to the caches.  Triggers
in the schema pg_notify "<table>_changes" with a JSON payload naming the row
that changed.  Each Consumer gets the events for its table.

The admin tool writes to the database directly, so without this a daemon
would serve a stale admin bit or cookie key until its cache expired.
*/
package dbnotify

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/ts4z/wtapicks/varz"
)

const (
	sleepOnErrorTime = 5 * time.Second
)

var (
	notificationsReceived = varz.NewCounterVec("events_total", "Database change notifications, by table.", "table")
	notificationsDropped  = varz.NewCounter("dropped_total", "Database change notifications that could not be handled.")
)

type NotificationEvent struct {
	Table string `json:"table"`
	OnID  int64  `json:"id"`
	Op    string `json:"op"`
}

type Consumer interface {
	TableName() string
	Consume(ctx context.Context, event *NotificationEvent)
}

type Listener struct {
	db                  *sql.DB
	tableNameToConsumer map[string]Consumer
}

func NewListener(db *sql.DB, consumers ...Consumer) (*Listener, error) {
	m := make(map[string]Consumer)
	for _, c := range consumers {
		tableName := c.TableName()
		if _, exists := m[tableName]; exists {
			return nil, fmt.Errorf("duplicate consumer for table %s", tableName)
		}
		m[tableName] = c
	}

	return &Listener{db: db, tableNameToConsumer: m}, nil
}

// Channels are the ones Listen will LISTEN on.
func (l *Listener) Channels() []string {
	channels := []string{}
	for table := range l.tableNameToConsumer {
		channels = append(channels, table+"_changes")
	}
	return channels
}

// Dispatch decodes one payload and hands it to the consumer for its table.
// It reports whether anyone took it.
func (l *Listener) Dispatch(ctx context.Context, payload string) bool {
	event := &NotificationEvent{}
	if err := json.Unmarshal([]byte(payload), event); err != nil {
		log.Printf("can't unmarshal notification payload '%s': %v", payload, err)
		notificationsDropped.Inc()
		return false
	}
	c, ok := l.tableNameToConsumer[event.Table]
	if !ok {
		log.Printf("no consumer for table %s", event.Table)
		notificationsDropped.Inc()
		return false
	}
	notificationsReceived.WithLabelValues(event.Table).Inc()
	c.Consume(ctx, event)
	return true
}

// Run calls Listen until ctx is done, reconnecting after errors.
func (l *Listener) Run(ctx context.Context) {
	for {
		err := l.Listen(ctx)
		if ctx.Err() != nil {
			return
		}
		log.Printf("dbnotify: %v; retrying in %v", err, sleepOnErrorTime)
		select {
		case <-ctx.Done():
			return
		case <-time.After(sleepOnErrorTime):
		}
	}
}

// Listen holds one connection out of the pool and waits on it for
// notifications.  It returns when ctx is done or the connection fails.
func (l *Listener) Listen(ctx context.Context) error {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	var pgxConn *stdlib.Conn
	err = conn.Raw(func(driverConn any) error {
		c, ok := driverConn.(*stdlib.Conn)
		if !ok {
			return fmt.Errorf("driver connection is %T, not pgx", driverConn)
		}
		pgxConn = c
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to get pgx connection: %w", err)
	}

	for _, channel := range l.Channels() {
		if _, err := pgxConn.Conn().Exec(ctx, "LISTEN "+channel); err != nil {
			return fmt.Errorf("failed to listen on channel %s: %w", channel, err)
		}
	}

	for {
		notification, err := pgxConn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("error waiting for notification: %w", err)
		}
		log.Printf("(received db notification %d %s)", notification.PID, notification.Payload)
		l.Dispatch(ctx, notification.Payload)
	}
}
