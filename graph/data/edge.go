/*
 * ArcDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package data

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

/*
EdgeKey is the identity of an edge.
*/
type EdgeKey struct {
	OutboundID uuid.UUID `json:"outbound_id"`
	T          Type      `json:"t"`
	InboundID  uuid.UUID `json:"inbound_id"`
}

/*
NewEdgeKey creates a new edge key.
*/
func NewEdgeKey(outboundID uuid.UUID, t Type, inboundID uuid.UUID) EdgeKey {
	return EdgeKey{outboundID, t, inboundID}
}

/*
Reversed returns the key with both ends swapped.
*/
func (k EdgeKey) Reversed() EdgeKey {
	return EdgeKey{k.InboundID, k.T, k.OutboundID}
}

/*
End returns the end of this edge in a given direction.
*/
func (k EdgeKey) End(dir Direction) uuid.UUID {
	if dir == Inbound {
		return k.InboundID
	}
	return k.OutboundID
}

/*
String returns a string representation of this edge key.
*/
func (k EdgeKey) String() string {
	return fmt.Sprintf("%v-[%v]->%v", k.OutboundID, k.T, k.InboundID)
}

/*
CompareEdgeKeys compares two edge keys by outbound id, type and inbound id.
*/
func CompareEdgeKeys(a, b EdgeKey) int {
	if res := CompareIDs(a.OutboundID, b.OutboundID); res != 0 {
		return res
	}
	if res := strings.Compare(a.T.value, b.T.value); res != 0 {
		return res
	}
	return CompareIDs(a.InboundID, b.InboundID)
}

/*
Edge is a connection between two vertices.
*/
type Edge struct {
	Key             EdgeKey   `json:"key"`
	CreatedDatetime time.Time `json:"created_datetime"`
}

/*
NewEdge creates a new edge. The timestamp is normalized to UTC.
*/
func NewEdge(key EdgeKey, created time.Time) Edge {
	return Edge{key, NormalizeTime(created)}
}

/*
String returns a string representation of this edge.
*/
func (e Edge) String() string {
	return fmt.Sprintf("Edge(%v @ %v)", e.Key, e.CreatedDatetime.Format(time.RFC3339Nano))
}

/*
NormalizeTime converts a given time into the representation all storages
return: UTC with nanosecond precision and no monotonic clock reading.
*/
func NormalizeTime(t time.Time) time.Time {
	return time.Unix(0, t.UnixNano()).UTC()
}
