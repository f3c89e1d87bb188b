// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ics

import "fmt"

// FileMode is the dataset's state-machine state, selected at open time
// from the mode string's r/w flags.
type FileMode int

const (
	modeUnset FileMode = iota
	ModeRead
	ModeWrite
	ModeUpdate
)

// parsedMode is the decoded form of an open-mode string (spec.md §4.5).
type parsedMode struct {
	mode          FileMode
	forceName     bool // 'f': skip .ics/.ids suffix synthesis
	disableLocale bool // 'l': disable forcing the C locale during header I/O
	version       int  // 0 (unspecified, defaults to 1), 1, or 2
}

// parseMode decodes an open-mode string. Duplicate flags, unknown flags,
// and the absence of both 'r' and 'w' all fail with ErrIllParameter.
func parseMode(s string) (parsedMode, error) {
	var pm parsedMode
	var sawRead, sawWrite, sawForce, sawLocale, sawVersion bool

	for _, c := range s {
		switch c {
		case 'r':
			if sawRead {
				return pm, fmt.Errorf("%w: duplicate 'r' flag", ErrIllParameter)
			}
			sawRead = true
		case 'w':
			if sawWrite {
				return pm, fmt.Errorf("%w: duplicate 'w' flag", ErrIllParameter)
			}
			sawWrite = true
		case 'f':
			if sawForce {
				return pm, fmt.Errorf("%w: duplicate 'f' flag", ErrIllParameter)
			}
			sawForce = true
			pm.forceName = true
		case 'l':
			if sawLocale {
				return pm, fmt.Errorf("%w: duplicate 'l' flag", ErrIllParameter)
			}
			sawLocale = true
			pm.disableLocale = true
		case '1':
			if sawVersion {
				return pm, fmt.Errorf("%w: duplicate version flag", ErrIllParameter)
			}
			sawVersion = true
			pm.version = 1
		case '2':
			if sawVersion {
				return pm, fmt.Errorf("%w: duplicate version flag", ErrIllParameter)
			}
			sawVersion = true
			pm.version = 2
		default:
			return pm, fmt.Errorf("%w: unknown mode flag %q", ErrIllParameter, c)
		}
	}

	switch {
	case sawRead && sawWrite:
		pm.mode = ModeUpdate
	case sawRead:
		pm.mode = ModeRead
	case sawWrite:
		pm.mode = ModeWrite
	default:
		return pm, fmt.Errorf("%w: mode string must contain 'r' or 'w'", ErrIllParameter)
	}

	if pm.version == 0 {
		pm.version = 1
	}

	return pm, nil
}
