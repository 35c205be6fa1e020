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
	"github.com/aether-dbg/aether/errkind"
	"github.com/aether-dbg/aether/symbols"
)

// embassyTasks produces a single placeholder task for the executor symbol.
// Full async-task/future resolution is explicitly deferred, matching the
// original implementation's own scope for Embassy.
func embassyTasks(sym *symbols.Manager) ([]TaskInfo, error) {
	exec, ok := sym.LookupSymbol("__embassy_executor_global")
	if !ok {
		return nil, errkind.Errorf(errkind.SymbolNotFound, "__embassy_executor_global")
	}
	return []TaskInfo{
		{
			Name:     "embassy-executor",
			TaskType: Async,
			Handle:   exec.Address,
			State:    Running,
		},
	}, nil
}
