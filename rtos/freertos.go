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

package rtos

import (
	"bytes"
	"encoding/binary"

	"github.com/aether-dbg/aether/errkind"
	"github.com/aether-dbg/aether/symbols"
	"github.com/aether-dbg/aether/target"
)

// FreeRTOS structural layout, 32-bit target, default Cortex-M build (no
// MPU, no trace hooks): the per-build-config offsets noted in the design
// notes as an open question.
const (
	listT_uxNumberOfItems = 0
	listT_xListEnd        = 8
	listItem_xItemValue   = 0
	listItem_pxNext       = 4
	listItem_pxPrevious   = 8
	listItem_pvOwner      = 12
	listTSize             = 20

	tcb_uxPriority  = 44
	tcb_pcTaskName  = 52
	tcb_nameMaxLen  = 16

	numPriorities = 32
)

// WalkReadyListForTest exercises a single ready-list walk directly, for
// tests that want to exercise the List_t/ListItem_t/TCB traversal without
// building a full ELF symbol table.
func WalkReadyListForTest(core target.Core, listAddr uint64, priority uint32) ([]TaskInfo, error) {
	return walkList(core, listAddr, priority, Ready)
}

func freeRTOSTasks(core target.Core, sym *symbols.Manager) ([]TaskInfo, error) {
	readyBase, ok := sym.LookupSymbol("pxReadyTasksLists")
	if !ok {
		return nil, errkind.Errorf(errkind.SymbolNotFound, "pxReadyTasksLists")
	}

	var tasks []TaskInfo

	for i := 0; i < numPriorities; i++ {
		listAddr := readyBase.Address + uint64(i*listTSize)
		ts, err := walkList(core, listAddr, uint32(i), Ready)
		if err != nil {
			continue
		}
		tasks = append(tasks, ts...)
	}

	for _, name := range []string{"xDelayedTaskList1", "xDelayedTaskList2"} {
		if s, ok := sym.LookupSymbol(name); ok {
			if ts, err := walkList(core, s.Address, 0, Delayed); err == nil {
				tasks = append(tasks, ts...)
			}
		}
	}
	if s, ok := sym.LookupSymbol("xSuspendedTaskList"); ok {
		if ts, err := walkList(core, s.Address, 0, Suspended); err == nil {
			tasks = append(tasks, ts...)
		}
	}

	if cur, ok := sym.LookupSymbol("pxCurrentTCB"); ok {
		b, err := core.ReadMemory(cur.Address, 4)
		if err == nil {
			curTCB := uint64(binary.LittleEndian.Uint32(b))
			for i := range tasks {
				if tasks[i].Handle == curTCB {
					tasks[i].State = Running
				}
			}
		}
	}

	return tasks, nil
}

// walkList walks one List_t starting at listAddr, following pxNext from
// xListEnd and terminating on a return to xListEnd, a NULL pointer, or
// having visited uxNumberOfItems entries -- whichever comes first.
func walkList(core target.Core, listAddr uint64, priority uint32, state TaskState) ([]TaskInfo, error) {
	header, err := core.ReadMemory(listAddr, listTSize)
	if err != nil {
		return nil, err
	}
	count := binary.LittleEndian.Uint32(header[listT_uxNumberOfItems:])
	endAddr := listAddr + uint64(listT_xListEnd)

	endItem, err := core.ReadMemory(endAddr, 16)
	if err != nil {
		return nil, err
	}
	next := uint64(binary.LittleEndian.Uint32(endItem[listItem_pxNext:]))

	var out []TaskInfo
	for i := uint32(0); i < count; i++ {
		if next == 0 || next == endAddr {
			break
		}

		item, err := core.ReadMemory(next, 16)
		if err != nil {
			break
		}
		owner := uint64(binary.LittleEndian.Uint32(item[listItem_pvOwner:]))

		tcb, err := readTCB(core, owner)
		if err == nil {
			if state == Ready {
				tcb.Priority = priority
			}
			tcb.State = state
			tcb.Handle = owner
			out = append(out, tcb)
		}

		next = uint64(binary.LittleEndian.Uint32(item[listItem_pxNext:]))
	}
	return out, nil
}

func readTCB(core target.Core, addr uint64) (TaskInfo, error) {
	prioBytes, err := core.ReadMemory(addr+tcb_uxPriority, 4)
	if err != nil {
		return TaskInfo{}, err
	}
	nameBytes, err := core.ReadMemory(addr+tcb_pcTaskName, tcb_nameMaxLen)
	if err != nil {
		return TaskInfo{}, err
	}
	if nul := bytes.IndexByte(nameBytes, 0); nul >= 0 {
		nameBytes = nameBytes[:nul]
	}

	return TaskInfo{
		Name:     string(nameBytes),
		Priority: binary.LittleEndian.Uint32(prioBytes),
		TaskType: Thread,
	}, nil
}
