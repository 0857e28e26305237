/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package models

import (
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// SystemKey is the storage key of the system account in every table.
const SystemKey = "SYSTEM"

// SystemName is the display name recorded for the system account in history.
const SystemName = "Server"

var (
	ErrReservedAccount = errors.New("the nil account id is reserved for the system account")
	ErrInvalidParty    = errors.New("invalid party")
)

type PartyKind string

const (
	KindSystem PartyKind = "system"
	KindPlayer PartyKind = "player"
)

// Party identifies a ledger participant: either the system account or a
// player account. The zero value is invalid.
type Party struct {
	kind PartyKind
	id   uuid.UUID
}

// System is the market itself. It is the only party allowed a negative balance.
var System = Party{kind: KindSystem}

// Player returns the party for a player account id.
func Player(id uuid.UUID) Party {
	return Party{kind: KindPlayer, id: id}
}

// ParseParty is the inverse of Party.Key.
func ParseParty(key string) (Party, error) {
	if key == SystemKey {
		return System, nil
	}
	id, err := uuid.Parse(key)
	if err != nil {
		return Party{}, fmt.Errorf("%w: %q", ErrInvalidParty, key)
	}
	p := Player(id)
	if err := p.Validate(); err != nil {
		return Party{}, err
	}
	return p, nil
}

func (p Party) Kind() PartyKind { return p.kind }

func (p Party) IsSystem() bool { return p.kind == KindSystem }

// Id returns the player account id; uuid.Nil for the system account.
func (p Party) Id() uuid.UUID { return p.id }

// Validate rejects the zero Party and players using the reserved nil id.
func (p Party) Validate() error {
	switch p.kind {
	case KindSystem:
		return nil
	case KindPlayer:
		if p.id == uuid.Nil {
			return ErrReservedAccount
		}
		return nil
	default:
		return ErrInvalidParty
	}
}

// Key is the value stored in account, seller and buyer columns.
func (p Party) Key() string {
	if p.IsSystem() {
		return SystemKey
	}
	return p.id.String()
}

func (p Party) String() string { return p.Key() }

// Value implements driver.Valuer.
func (p Party) Value() (driver.Value, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p.Key(), nil
}

// Scan implements sql.Scanner.
func (p *Party) Scan(src any) error {
	var key string
	switch v := src.(type) {
	case string:
		key = v
	case []byte:
		key = string(v)
	default:
		return fmt.Errorf("%w: cannot scan %T", ErrInvalidParty, src)
	}
	parsed, err := ParseParty(key)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
