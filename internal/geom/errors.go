/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

import (
	"errors"
	"fmt"
)

// Engine conditions. Only ErrStructuralInput is meant to propagate; the
// others describe a substitution the engine already made and are surfaced
// as warnings.
var (
	ErrInvalidRoomBounds   = errors.New("invalid room bounds, default substituted")
	ErrExhaustedPlacement  = errors.New("placement attempts exhausted, best-effort position used")
	ErrDegenerateAssetType = errors.New("unknown asset type, default dimensions used")
	ErrStructuralInput     = errors.New("malformed geometry input")
)

// StructuralError names the malformed field of a geometry input.
type StructuralError struct {
	Field  string // e.g. "room.walls[2].end.z"
	Reason string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrStructuralInput, e.Field, e.Reason)
}

func (e *StructuralError) Unwrap() error { return ErrStructuralInput }

// Structural returns a *StructuralError for field.
func Structural(field, reason string) error {
	return &StructuralError{Field: field, Reason: reason}
}
