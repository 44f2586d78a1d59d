// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package background_test

import (
	"fmt"
	"time"

	"github.com/orvelte/lifecycled/background"
)

type theState struct {
	count int
}

func Example() {

	proc := &theState{
		count: 10,
	}

	processes := background.Processes{
		proc.run,
	}

	reg := background.Start(processes, nil)
	time.Sleep(time.Millisecond)
	background.Stop(reg)

	// Output:
	// initialise
	// finalise
}

func (state *theState) run(args interface{}, shutdown <-chan bool, done chan<- bool) {

	fmt.Printf("initialise\n")

loop:
	for {
		select {
		case <-shutdown:
			break loop
		default:
		}

		state.count += 1
		time.Sleep(time.Microsecond)
	}

	fmt.Printf("finalise\n")
	close(done)
}
