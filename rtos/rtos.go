// This file is part of Aether.
//
// Aether is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Aether is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Aether.  If not, see <https://www.gnu.org/licenses/>.

// Package rtos introspects the RTOS a target is running, detected purely
// from its loaded symbol table: pxReadyTasksLists means FreeRTOS,
// __embassy_executor_global means Embassy. Detecting neither means no RTOS
// view is available.
package rtos

import (
	"github.com/aether-dbg/aether/errkind"
	"github.com/aether-dbg/aether/symbols"
	"github.com/aether-dbg/aether/target"
)

// TaskType classifies how a task's concurrency is implemented on-target.
type TaskType int

const (
	Thread TaskType = iota
	Async
)

// TaskState mirrors a task's position within the RTOS's scheduling lists.
type TaskState int

const (
	Ready TaskState = iota
	Delayed
	Suspended
	Running
)

func (s TaskState) String() string {
	switch s {
	case Ready:
		return "ready"
	case Delayed:
		return "delayed"
	case Suspended:
		return "suspended"
	case Running:
		return "running"
	default:
		return "unknown"
	}
}

// TaskInfo is one entry in the task list surfaced by GetTasks.
type TaskInfo struct {
	Name       string
	Priority   uint32
	State      TaskState
	StackUsage uint32
	StackSize  uint32
	Handle     uint64
	TaskType   TaskType
}

// Kind identifies which RTOS (if any) was detected.
type Kind int

const (
	None Kind = iota
	FreeRTOS
	Embassy
)

// Detect inspects sym's loaded symbol table for the marker symbols that
// identify a supported RTOS.
func Detect(sym *symbols.Manager) Kind {
	if _, ok := sym.LookupSymbol("pxReadyTasksLists"); ok {
		return FreeRTOS
	}
	if _, ok := sym.LookupSymbol("__embassy_executor_global"); ok {
		return Embassy
	}
	return None
}

// GetTasks dispatches to the detected RTOS's task walk.
func GetTasks(core target.Core, sym *symbols.Manager) ([]TaskInfo, error) {
	switch Detect(sym) {
	case FreeRTOS:
		return freeRTOSTasks(core, sym)
	case Embassy:
		return embassyTasks(sym)
	default:
		return nil, errkind.Errorf(errkind.NoRtosDetected)
	}
}
