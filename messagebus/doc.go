// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package messagebus is a small queuing system that environments use
// to announce commits and firings to anything listening — the
// control-plane daemon's status file writer, tests, or an operator tool.
package messagebus
