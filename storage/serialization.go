// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import (
	"fmt"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/rapport/core"
)

// Record format versions. A leading version lets readers reject records
// written by a newer layout instead of misreading them.
const (
	profileFormatVersion = 1
	matchFormatVersion   = 1
)

// MarshalID encodes an ID as a varint.
func MarshalID(id core.ID) []byte {
	v := uint64(id)
	buf := make([]byte, varint.Uint64.Size(v))
	varint.Uint64.Marshal(v, buf)
	return buf
}

// UnmarshalID decodes an ID written by MarshalID.
func UnmarshalID(data []byte) (core.ID, error) {
	d := decoder{bs: data}
	v := d.uint64()
	if d.err != nil {
		return 0, d.err
	}
	return core.ID(v), nil
}

// MarshalProfile encodes a profile, including its stored vectors.
func MarshalProfile(p *core.UserProfile) []byte {
	var e encoder
	e.profile(p) // sizing pass
	e.buf = make([]byte, e.size)
	e.size = 0
	e.profile(p)
	return e.buf
}

// UnmarshalProfile decodes a profile written by MarshalProfile.
func UnmarshalProfile(data []byte) (*core.UserProfile, error) {
	d := decoder{bs: data}
	if v := d.int(); d.err == nil && v != profileFormatVersion {
		return nil, fmt.Errorf("%w: unknown profile format %d", ErrSerializationFailed, v)
	}

	p := &core.UserProfile{
		UserID:     d.string(),
		Name:       d.string(),
		Email:      d.string(),
		Profession: d.string(),
		Location:   d.string(),
	}
	for i := range p.Answers {
		p.Answers[i] = d.string()
	}
	if n := d.length(); n > 0 {
		p.FieldEmbeddings = make([][]float32, n)
		for i := range p.FieldEmbeddings {
			p.FieldEmbeddings[i] = d.vector()
		}
	}
	if d.bool() {
		p.AuxiliaryEmbedding = d.vector()
	}
	p.AuxiliaryText = d.string()
	p.CreatedAt = d.time()

	if d.err != nil {
		return nil, d.err
	}
	return p, nil
}

// MarshalMatchEdge encodes a directed match edge.
func MarshalMatchEdge(edge *core.MatchEdge) []byte {
	var e encoder
	e.matchEdge(edge)
	e.buf = make([]byte, e.size)
	e.size = 0
	e.matchEdge(edge)
	return e.buf
}

// UnmarshalMatchEdge decodes an edge written by MarshalMatchEdge.
func UnmarshalMatchEdge(data []byte) (*core.MatchEdge, error) {
	d := decoder{bs: data}
	if v := d.int(); d.err == nil && v != matchFormatVersion {
		return nil, fmt.Errorf("%w: unknown match format %d", ErrSerializationFailed, v)
	}

	edge := &core.MatchEdge{
		SourceUserID:   d.string(),
		TargetUserID:   d.string(),
		CompositeScore: d.int(),
		CreatedAt:      d.time(),
	}
	if d.err != nil {
		return nil, d.err
	}
	return edge, nil
}

// encoder runs twice over a record: once with a nil buf to compute the
// size, then again to write into a buffer of exactly that size.
type encoder struct {
	buf  []byte
	size int
}

func (e *encoder) profile(p *core.UserProfile) {
	e.int(profileFormatVersion)
	e.string(p.UserID)
	e.string(p.Name)
	e.string(p.Email)
	e.string(p.Profession)
	e.string(p.Location)
	for _, a := range p.Answers {
		e.string(a)
	}
	e.int(len(p.FieldEmbeddings))
	for _, v := range p.FieldEmbeddings {
		e.vector(v)
	}
	e.bool(p.HasAuxiliary())
	if p.HasAuxiliary() {
		e.vector(p.AuxiliaryEmbedding)
	}
	e.string(p.AuxiliaryText)
	e.time(p.CreatedAt)
}

func (e *encoder) matchEdge(edge *core.MatchEdge) {
	e.int(matchFormatVersion)
	e.string(edge.SourceUserID)
	e.string(edge.TargetUserID)
	e.int(edge.CompositeScore)
	e.time(edge.CreatedAt)
}

func (e *encoder) int(v int) {
	if e.buf == nil {
		e.size += varint.Int.Size(v)
		return
	}
	e.size += varint.Int.Marshal(v, e.buf[e.size:])
}

func (e *encoder) int64(v int64) {
	if e.buf == nil {
		e.size += varint.Int64.Size(v)
		return
	}
	e.size += varint.Int64.Marshal(v, e.buf[e.size:])
}

func (e *encoder) float32(v float32) {
	if e.buf == nil {
		e.size += varint.Float32.Size(v)
		return
	}
	e.size += varint.Float32.Marshal(v, e.buf[e.size:])
}

func (e *encoder) string(v string) {
	if e.buf == nil {
		e.size += ord.String.Size(v)
		return
	}
	e.size += ord.String.Marshal(v, e.buf[e.size:])
}

func (e *encoder) bool(v bool) {
	if e.buf == nil {
		e.size += ord.Bool.Size(v)
		return
	}
	e.size += ord.Bool.Marshal(v, e.buf[e.size:])
}

func (e *encoder) vector(v []float32) {
	e.int(len(v))
	for _, f := range v {
		e.float32(f)
	}
}

// Timestamps are stored as Unix microseconds; the zero time round-trips.
func (e *encoder) time(t time.Time) {
	if t.IsZero() {
		e.int64(0)
		return
	}
	e.int64(t.UnixMicro())
}

// decoder reads fields in order and keeps the first error.
// Every read after an error is a no-op returning the zero value.
type decoder struct {
	bs  []byte
	off int
	err error
}

func (d *decoder) ready() bool {
	if d.err != nil {
		return false
	}
	if d.off >= len(d.bs) {
		d.err = ErrTruncatedData
		return false
	}
	return true
}

func (d *decoder) fail(err error) {
	d.err = fmt.Errorf("%w: %w", ErrSerializationFailed, err)
}

func (d *decoder) int() int {
	if !d.ready() {
		return 0
	}
	v, n, err := varint.Int.Unmarshal(d.bs[d.off:])
	if err != nil {
		d.fail(err)
		return 0
	}
	d.off += n
	return v
}

func (d *decoder) int64() int64 {
	if !d.ready() {
		return 0
	}
	v, n, err := varint.Int64.Unmarshal(d.bs[d.off:])
	if err != nil {
		d.fail(err)
		return 0
	}
	d.off += n
	return v
}

func (d *decoder) uint64() uint64 {
	if !d.ready() {
		return 0
	}
	v, n, err := varint.Uint64.Unmarshal(d.bs[d.off:])
	if err != nil {
		d.fail(err)
		return 0
	}
	d.off += n
	return v
}

func (d *decoder) float32() float32 {
	if !d.ready() {
		return 0
	}
	v, n, err := varint.Float32.Unmarshal(d.bs[d.off:])
	if err != nil {
		d.fail(err)
		return 0
	}
	d.off += n
	return v
}

func (d *decoder) string() string {
	if !d.ready() {
		return ""
	}
	v, n, err := ord.String.Unmarshal(d.bs[d.off:])
	if err != nil {
		d.fail(err)
		return ""
	}
	d.off += n
	return v
}

func (d *decoder) bool() bool {
	if !d.ready() {
		return false
	}
	v, n, err := ord.Bool.Unmarshal(d.bs[d.off:])
	if err != nil {
		d.fail(err)
		return false
	}
	d.off += n
	return v
}

// length reads a collection length. Every element occupies at least one
// byte, so a length beyond the remaining input means the record is corrupt.
func (d *decoder) length() int {
	n := d.int()
	if d.err != nil {
		return 0
	}
	if n < 0 || n > len(d.bs)-d.off {
		d.err = ErrTruncatedData
		return 0
	}
	return n
}

func (d *decoder) vector() []float32 {
	n := d.length()
	if d.err != nil {
		return nil
	}
	v := make([]float32, n)
	for i := range v {
		v[i] = d.float32()
	}
	return v
}

func (d *decoder) time() time.Time {
	us := d.int64()
	if d.err != nil || us == 0 {
		return time.Time{}
	}
	return time.UnixMicro(us).UTC()
}
