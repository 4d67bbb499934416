// Package validator lints frozen definitions before they are launched.
package validator

import (
	"fmt"
	"strings"

	"github.com/aretw0/conduit/pkg/model"
)

// ValidateDefinition checks for dangling ports and blocks no message can reach.
// A dangling port is a block port that is neither connected nor exported; at run
// time it becomes an unconnected handle. A block is reachable when a path of
// connections leads to it from a source block or from an exported input.
func ValidateDefinition(def *model.Definition) error {
	blocks := def.Blocks()

	var errors []string
	for _, b := range blocks {
		for _, id := range b.Inputs() {
			if _, ok := def.ConnectionTo(id); !ok && !def.IsExported(id.PortID()) {
				errors = append(errors, fmt.Sprintf("Dangling input %d on block '%s'", id, b.Name()))
			}
		}
		for _, id := range b.Outputs() {
			if _, ok := def.ConnectionFrom(id); !ok && !def.IsExported(id.PortID()) {
				errors = append(errors, fmt.Sprintf("Dangling output %d on block '%s'", id, b.Name()))
			}
		}
	}

	// Crawler
	visited := make(map[model.BlockHandle]bool)
	var queue []model.BlockHandle
	for i, b := range blocks {
		if len(b.Inputs()) == 0 {
			queue = append(queue, model.BlockHandle(i))
		}
	}
	for _, id := range def.ExportedInputs() {
		if h, ok := def.Owner(id.PortID()); ok {
			queue = append(queue, h)
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if visited[current] {
			continue
		}
		visited[current] = true

		b, _ := def.Block(current)
		for _, out := range b.Outputs() {
			c, ok := def.ConnectionFrom(out)
			if !ok {
				continue
			}
			if next, ok := def.Owner(c.Input.PortID()); ok && !visited[next] {
				queue = append(queue, next)
			}
		}
	}

	for i, b := range blocks {
		if !visited[model.BlockHandle(i)] {
			errors = append(errors, fmt.Sprintf("Unreachable block '%s'", b.Name()))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("found %d errors:\n- %s", len(errors), strings.Join(errors, "\n- "))
	}
	return nil
}
