// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testsupport provides test helpers shared across this
// module's packages.
//
// [RequireReceive], [RequireSend], and [RequireClosed] encapsulate the
// timeout safety valve pattern (select with time.After fallback) so
// that individual tests do not need direct time.After calls. The
// rpctransport tests do not use them and call time.After directly.
//
// [UniqueID] generates monotonically increasing identifiers for test
// disambiguation, for use instead of time.Now() wherever a test needs
// distinguishable transaction or session identifiers.
//
// [SocketDir] creates a short-named temporary directory in /tmp,
// suitable for Unix domain sockets — sockaddr_un's 108-byte sun_path
// limit makes t.TempDir() unusable once test paths nest a few
// directories deep.
package testsupport
