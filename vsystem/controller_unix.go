//go:build !windows

package vsystem

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// unixController manages the service through systemd conventions: a
// wants-symlink for autostart and an environment file for service
// arguments. The firewall exception shells out to firewall-cmd or ufw,
// whichever is present.
type unixController struct {
	unitName string
	unitPath string
	wantsDir string
	envFile  string
}

func newController() Controller {
	return &unixController{
		unitName: "veyon.service",
		unitPath: "/lib/systemd/system/veyon.service",
		wantsDir: "/etc/systemd/system/multi-user.target.wants",
		envFile:  "/etc/default/veyon",
	}
}

// newControllerWithPaths allows tests to redirect filesystem locations.
func newControllerWithPaths(unitPath, wantsDir, envFile string) *unixController {
	return &unixController{
		unitName: filepath.Base(unitPath),
		unitPath: unitPath,
		wantsDir: wantsDir,
		envFile:  envFile,
	}
}

func (c *unixController) SetServiceAutostart(enable bool) error {
	link := filepath.Join(c.wantsDir, c.unitName)
	if enable {
		if err := os.MkdirAll(c.wantsDir, 0o755); err != nil {
			return fmt.Errorf("veyon: create wants directory: %w", err)
		}
		err := os.Symlink(c.unitPath, link)
		if err != nil && !os.IsExist(err) {
			return fmt.Errorf("veyon: enable service autostart: %w", err)
		}
		return nil
	}
	if err := os.Remove(link); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("veyon: disable service autostart: %w", err)
	}
	return nil
}

func (c *unixController) SetServiceArguments(args string) error {
	content := "VEYON_SERVICE_ARGS=" + strconv.Quote(args) + "\n"
	if err := os.MkdirAll(filepath.Dir(c.envFile), 0o755); err != nil {
		return fmt.Errorf("veyon: create environment file directory: %w", err)
	}
	if err := os.WriteFile(c.envFile, []byte(content), 0o644); err != nil {
		return fmt.Errorf("veyon: write service arguments: %w", err)
	}
	return nil
}

func (c *unixController) EnableFirewallException(enable bool) error {
	port := strconv.Itoa(ServicePort)

	if _, err := exec.LookPath("firewall-cmd"); err == nil {
		var cmd *exec.Cmd
		if enable {
			cmd = exec.Command("firewall-cmd", "--permanent", "--add-port="+port+"/tcp")
		} else {
			cmd = exec.Command("firewall-cmd", "--permanent", "--remove-port="+port+"/tcp")
		}
		if out, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("veyon: firewall-cmd: %w: %s", err, out)
		}
		if out, err := exec.Command("firewall-cmd", "--reload").CombinedOutput(); err != nil {
			return fmt.Errorf("veyon: firewall-cmd reload: %w: %s", err, out)
		}
		return nil
	}

	if _, err := exec.LookPath("ufw"); err == nil {
		var cmd *exec.Cmd
		if enable {
			cmd = exec.Command("ufw", "allow", port+"/tcp")
		} else {
			cmd = exec.Command("ufw", "delete", "allow", port+"/tcp")
		}
		if out, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("veyon: ufw: %w: %s", err, out)
		}
		return nil
	}

	return fmt.Errorf("veyon: no supported firewall tool found")
}
