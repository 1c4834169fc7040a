// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package binder

import (
	"github.com/openbinder/binderproxy/status"
	"github.com/openbinder/binderproxy/transport"
)

type fakeKernel struct {
	transactFunc func(handle int32, code uint32, data transport.Data, reply transport.Reply, flags transport.Flags) status.Status

	incStrongCalls, decStrongCalls, incWeakCalls, decWeakCalls []int32
	attemptIncStrongResult                                     bool
	originator                                                 uint32

	requestDeathCalls, clearDeathCalls []int32
	flushCalls                         int
}

func (k *fakeKernel) Transact(handle int32, code uint32, data transport.Data, reply transport.Reply, flags transport.Flags) status.Status {
	if k.transactFunc != nil {
		return k.transactFunc(handle, code, data, reply, flags)
	}
	return status.OK
}

func (k *fakeKernel) IncStrong(handle int32)      { k.incStrongCalls = append(k.incStrongCalls, handle) }
func (k *fakeKernel) DecStrong(handle int32)      { k.decStrongCalls = append(k.decStrongCalls, handle) }
func (k *fakeKernel) IncWeak(handle int32)        { k.incWeakCalls = append(k.incWeakCalls, handle) }
func (k *fakeKernel) DecWeak(handle int32)        { k.decWeakCalls = append(k.decWeakCalls, handle) }
func (k *fakeKernel) AttemptIncStrong(int32) bool { return k.attemptIncStrongResult }
func (k *fakeKernel) RequestDeath(handle int32, _ any) {
	k.requestDeathCalls = append(k.requestDeathCalls, handle)
}
func (k *fakeKernel) ClearDeath(handle int32, _ any) {
	k.clearDeathCalls = append(k.clearDeathCalls, handle)
}
func (k *fakeKernel) Flush()                    { k.flushCalls++ }
func (k *fakeKernel) CallingOriginator() uint32 { return k.originator }

type fakeSession struct {
	transactFunc   func(address uint64, code uint32, data transport.Data, reply transport.Reply, flags transport.Flags) status.Status
	maxIncoming    int
	decStrongCalls []uint64
}

func (s *fakeSession) Transact(address uint64, code uint32, data transport.Data, reply transport.Reply, flags transport.Flags) status.Status {
	if s.transactFunc != nil {
		return s.transactFunc(address, code, data, reply, flags)
	}
	return status.OK
}

func (s *fakeSession) SendDecStrong(address uint64) {
	s.decStrongCalls = append(s.decStrongCalls, address)
}

func (s *fakeSession) MaxIncomingThreads() int { return s.maxIncoming }

type fakeData struct{ data []byte }

func (d fakeData) Len() int      { return len(d.data) }
func (d fakeData) Bytes() []byte { return d.data }

type fakeReply struct{ data []byte }

func (r *fakeReply) SetBytes(data []byte) { r.data = data }
