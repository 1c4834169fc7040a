// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package binder

// TransactionCode identifies which operation a transaction requests.
// Values in [FirstCallTransaction, LastCallTransaction] are
// application-defined user calls subject to the stability check in
// Object.Transact; values outside that range are the reserved codes
// below and bypass the stability check entirely.
type TransactionCode uint32

// Reserved transaction codes. Preserved verbatim across
// implementations.
const (
	Ping            TransactionCode = 0x5f504e47 // "_PNG"
	Dump            TransactionCode = 0x5f444d50 // "_DMP"
	Interface       TransactionCode = 0x5f4e5446 // "_NTF"
	StartRecording  TransactionCode = 0x5f535243 // "_SRC"
	StopRecording   TransactionCode = 0x5f535450 // "_STP"
	Shell           TransactionCode = 0x5f434d44 // "_CMD"
	SyspropsChanged TransactionCode = 0x5f505253 // "_PRS"
)

// FirstCallTransaction and LastCallTransaction bound the range of
// application-defined user transaction codes subject to the stability
// check in Object.Transact.
const (
	FirstCallTransaction TransactionCode = 0x00000001
	LastCallTransaction  TransactionCode = 0x00ffffff
)

// isUserCall reports whether code falls in the application-defined
// call range and therefore requires a stability check before dispatch.
func isUserCall(code TransactionCode) bool {
	return code >= FirstCallTransaction && code <= LastCallTransaction
}
