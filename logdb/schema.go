// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package logdb

const eventTableSchema = `
create table if not exists event (
	blockNumber integer,
	eventIndex integer,
	name text,
	validator blob(20),
	account blob(20),
	amount blob,
	validators blob,
	primary key (blockNumber, eventIndex)
);

CREATE INDEX if not exists eventNameIndex on event(name);
`

// event_account lists every account an event refers to, so account
// filters also match members of an elected set.
const accountTableSchema = `
create table if not exists event_account (
	blockNumber integer,
	eventIndex integer,
	account blob(20),
	primary key (account, blockNumber, eventIndex)
);
`
