// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package logdb

import (
	"context"
	"database/sql"
	"strings"

	"github.com/holiman/uint256"
	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/vechain/dpos/thor"
)

type LogDB struct {
	path          string
	db            *sql.DB
	driverVersion string
}

// New create or open log db at given path.
func New(path string) (logDB *LogDB, err error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if logDB == nil {
			db.Close()
		}
	}()
	// every connection to ":memory:" opens a distinct database
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(eventTableSchema + accountTableSchema); err != nil {
		return nil, err
	}

	driverVer, _, _ := sqlite3.Version()
	return &LogDB{
		path,
		db,
		driverVer,
	}, nil
}

// NewMem create a log db in ram.
func NewMem() (*LogDB, error) {
	return New(":memory:")
}

// Close close the log db.
func (db *LogDB) Close() error {
	return db.db.Close()
}

func (db *LogDB) Path() string {
	return db.path
}

// DriverVersion returns the version of the sqlite library in use.
func (db *LogDB) DriverVersion() string {
	return db.driverVersion
}

// NewestBlock returns the highest block number having events, or 0.
func (db *LogDB) NewestBlock() (uint32, error) {
	var n sql.NullInt64
	if err := db.db.QueryRow("SELECT MAX(blockNumber) FROM event").Scan(&n); err != nil {
		return 0, err
	}
	return uint32(n.Int64), nil
}

// Write stores events. Events already stored under the same block number and
// index are replaced.
func (db *LogDB) Write(events []*Event) error {
	if len(events) == 0 {
		return nil
	}
	return db.execInTx(func(tx *sql.Tx) error {
		for _, ev := range events {
			var amount []byte
			if ev.Amount != nil {
				amount = ev.Amount.Bytes()
				if amount == nil {
					amount = []byte{}
				}
			}
			if _, err := tx.Exec("INSERT OR REPLACE INTO event(blockNumber, eventIndex, name, validator, account, amount, validators) VALUES (?, ?, ?, ?, ?, ?, ?);",
				ev.BlockNumber,
				ev.Index,
				ev.Name,
				ev.Validator.Bytes(),
				ev.Account.Bytes(),
				amount,
				encodeAddresses(ev.Validators),
			); err != nil {
				return err
			}
			for _, acc := range ev.accounts() {
				if _, err := tx.Exec("INSERT OR REPLACE INTO event_account(blockNumber, eventIndex, account) VALUES (?, ?, ?);",
					ev.BlockNumber,
					ev.Index,
					acc.Bytes(),
				); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// Truncate removes all events with block number not less than from.
func (db *LogDB) Truncate(from uint32) error {
	return db.execInTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM event WHERE blockNumber >= ?;", from); err != nil {
			return err
		}
		_, err := tx.Exec("DELETE FROM event_account WHERE blockNumber >= ?;", from)
		return err
	})
}

func (db *LogDB) FilterEvents(ctx context.Context, filter *EventFilter) ([]*Event, error) {
	const cols = "e.blockNumber, e.eventIndex, e.name, e.validator, e.account, e.amount, e.validators"
	if filter == nil {
		return db.queryEvents(ctx, "SELECT "+cols+" FROM event e ORDER BY e.blockNumber ASC, e.eventIndex ASC")
	}
	metricsHandleEventsFilter(filter)

	var args []any
	stmt := "SELECT " + cols + " FROM event e WHERE 1"
	if filter.Range != nil {
		args = append(args, filter.Range.From)
		stmt += " AND e.blockNumber >= ? "
		if filter.Range.To >= filter.Range.From {
			args = append(args, filter.Range.To)
			stmt += " AND e.blockNumber <= ? "
		}
	}
	if len(filter.Names) > 0 {
		stmt += " AND e.name IN (" + placeholders(len(filter.Names)) + ")"
		for _, name := range filter.Names {
			args = append(args, name)
		}
	}
	if len(filter.Accounts) > 0 {
		stmt += " AND EXISTS (SELECT 1 FROM event_account a WHERE a.blockNumber = e.blockNumber AND a.eventIndex = e.eventIndex AND a.account IN (" +
			placeholders(len(filter.Accounts)) + "))"
		for _, acc := range filter.Accounts {
			args = append(args, acc.Bytes())
		}
	}

	if filter.Order == DESC {
		stmt += " ORDER BY e.blockNumber DESC, e.eventIndex DESC "
	} else {
		stmt += " ORDER BY e.blockNumber ASC, e.eventIndex ASC "
	}

	if filter.Options != nil {
		stmt += " limit ?, ? "
		args = append(args, filter.Options.Offset, filter.Options.Limit)
	}
	return db.queryEvents(ctx, stmt, args...)
}

func (db *LogDB) queryEvents(ctx context.Context, stmt string, args ...any) ([]*Event, error) {
	rows, err := db.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query events")
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		var (
			blockNumber uint32
			index       uint32
			name        string
			validator   []byte
			account     []byte
			amount      []byte
			validators  []byte
		)
		if err := rows.Scan(
			&blockNumber,
			&index,
			&name,
			&validator,
			&account,
			&amount,
			&validators,
		); err != nil {
			return nil, err
		}
		event := &Event{
			BlockNumber: blockNumber,
			Index:       index,
			Name:        name,
			Validator:   thor.BytesToAddress(validator),
			Account:     thor.BytesToAddress(account),
			Validators:  decodeAddresses(validators),
		}
		if amount != nil {
			event.Amount = new(uint256.Int).SetBytes(amount)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func (db *LogDB) execInTx(proc func(*sql.Tx) error) (err error) {
	tx, err := db.db.Begin()
	if err != nil {
		return err
	}
	if err := proc(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
