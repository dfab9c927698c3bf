//go:build windows

package vsystem

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"golang.org/x/sys/windows/registry"
)

// Service start types from the Windows service control manager.
const (
	serviceStartAuto   = 2
	serviceStartManual = 3
)

const firewallRuleName = "Veyon Service"

// windowsController manages the service through the registry entry of the
// service control manager and a netsh firewall rule.
type windowsController struct {
	serviceName string
}

func newController() Controller {
	return &windowsController{serviceName: "VeyonService"}
}

func (c *windowsController) serviceKeyPath() string {
	return `SYSTEM\CurrentControlSet\Services\` + c.serviceName
}

func (c *windowsController) SetServiceAutostart(enable bool) error {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, c.serviceKeyPath(), registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("veyon: open service registry key: %w", err)
	}
	defer key.Close()

	start := uint32(serviceStartManual)
	if enable {
		start = serviceStartAuto
	}
	if err := key.SetDWordValue("Start", start); err != nil {
		return fmt.Errorf("veyon: set service start type: %w", err)
	}
	return nil
}

func (c *windowsController) SetServiceArguments(args string) error {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, c.serviceKeyPath(), registry.QUERY_VALUE|registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("veyon: open service registry key: %w", err)
	}
	defer key.Close()

	imagePath, _, err := key.GetStringValue("ImagePath")
	if err != nil {
		return fmt.Errorf("veyon: read service image path: %w", err)
	}

	exe := serviceExecutable(imagePath)
	newPath := exe
	if args != "" {
		newPath = exe + " " + args
	}
	if err := key.SetStringValue("ImagePath", newPath); err != nil {
		return fmt.Errorf("veyon: set service arguments: %w", err)
	}
	return nil
}

// serviceExecutable strips existing arguments from an ImagePath value.
// Quoted paths keep their quotes; unquoted paths are cut after the first
// ".exe" token.
func serviceExecutable(imagePath string) string {
	imagePath = strings.TrimSpace(imagePath)
	if strings.HasPrefix(imagePath, `"`) {
		if end := strings.Index(imagePath[1:], `"`); end >= 0 {
			return imagePath[:end+2]
		}
		return imagePath
	}
	lower := strings.ToLower(imagePath)
	if i := strings.Index(lower, ".exe"); i >= 0 {
		return imagePath[:i+4]
	}
	return imagePath
}

func (c *windowsController) EnableFirewallException(enable bool) error {
	var cmd *exec.Cmd
	if enable {
		cmd = exec.Command("netsh", "advfirewall", "firewall", "add", "rule",
			"name="+firewallRuleName, "dir=in", "action=allow",
			"protocol=TCP", "localport="+strconv.Itoa(ServicePort))
	} else {
		cmd = exec.Command("netsh", "advfirewall", "firewall", "delete", "rule",
			"name="+firewallRuleName)
	}
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("veyon: netsh: %w: %s", err, out)
	}
	return nil
}
