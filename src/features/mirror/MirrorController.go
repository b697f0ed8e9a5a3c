/**
 * Mirror controller - establishes and tears down mirror relationships
 * through the display-configuration transaction primitive
 */

package mirror

import (
	"fmt"

	"github.com/knightynite/hidpid/src/platform"
	"github.com/knightynite/hidpid/src/utility"
)

// Controller drives mirror configuration transactions. It is stateless
// beyond the transaction itself: on any failing step the transaction
// is cancelled and no partial mirror state is left live. The commit is
// synchronous but the mirrored image can take seconds to visually
// settle after it returns.
type Controller struct {
	logger *utility.Logger
	api    platform.API
}

// NewController creates a mirror controller over the given bridge.
func NewController(logger *utility.Logger, api platform.API) *Controller {
	return &Controller{logger: logger, api: api}
}

// Mirror makes target mirror source, committed permanently. The OS
// does not implicitly replace mirror bindings; callers must have torn
// down any pre-existing mirror on target first.
func (c *Controller) Mirror(source, target platform.DisplayID) error {
	return c.configure(target, source)
}

// Unmirror makes target mirror nothing.
func (c *Controller) Unmirror(target platform.DisplayID) error {
	return c.configure(target, 0)
}

func (c *Controller) configure(target, source platform.DisplayID) error {
	ref, err := c.api.BeginConfiguration()
	if err != nil {
		return fmt.Errorf("failed to begin mirror transaction: %w", err)
	}

	if err := c.api.ConfigureMirror(ref, target, source); err != nil {
		if cancelErr := c.api.CancelConfiguration(ref); cancelErr != nil {
			c.logger.Warn("Failed to cancel mirror transaction: %v", cancelErr)
		}
		return fmt.Errorf("failed to configure mirror: %w", err)
	}

	if err := c.api.CompleteConfiguration(ref); err != nil {
		return fmt.Errorf("failed to commit mirror transaction: %w", err)
	}

	if source != 0 {
		c.logger.Info("Display %d now mirrors display %d", target, source)
	} else {
		c.logger.Info("Display %d no longer mirrors", target)
	}
	return nil
}

// ResetAllMirroring unmirrors every online display currently mirroring
// something. Used as a blanket cleanup before establishing a fresh
// configuration, including stale state left by a prior process.
func (c *Controller) ResetAllMirroring() error {
	displays, err := c.api.OnlineDisplays()
	if err != nil {
		return fmt.Errorf("failed to enumerate displays for mirror reset: %w", err)
	}

	var firstErr error
	for _, d := range displays {
		if d.MirrorsDisplay == 0 {
			continue
		}
		if err := c.Unmirror(d.ID); err != nil {
			c.logger.Warn("Failed to unmirror display %d: %v", d.ID, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
