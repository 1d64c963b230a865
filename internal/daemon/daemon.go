package daemon

import (
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/process"
)

// ChildEnv marks a process started by Spawn.
const ChildEnv = "WORKAGENT_DAEMON_CHILD"

var ErrAlreadyRunning = errors.New("agent is already running")

type Daemon struct {
	pidFile string
}

func New(pidFile string) *Daemon {
	return &Daemon{pidFile: pidFile}
}

func (d *Daemon) PIDFile() string {
	return d.pidFile
}

func (d *Daemon) WritePID() error {
	if err := os.MkdirAll(filepath.Dir(d.pidFile), 0o755); err != nil {
		return errors.Wrap(err, "failed to create PID file directory")
	}
	return os.WriteFile(d.pidFile, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func (d *Daemon) ReadPID() (int, error) {
	data, err := os.ReadFile(d.pidFile)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "failed to read PID file")
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, errors.Wrap(err, "invalid PID in file")
	}

	return pid, nil
}

func (d *Daemon) RemovePID() error {
	if err := os.Remove(d.pidFile); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to remove PID file")
	}
	return nil
}

// IsRunning reports whether the PID in the file belongs to a live process.
// A stale file is removed.
func (d *Daemon) IsRunning() (bool, int, error) {
	pid, err := d.ReadPID()
	if err != nil {
		return false, 0, err
	}

	if pid == 0 {
		return false, 0, nil
	}

	exists, err := process.PidExists(int32(pid))
	if err != nil || !exists {
		_ = d.RemovePID()
		return false, 0, nil
	}

	return true, pid, nil
}

// Acquire writes the PID file unless another live agent owns it.
func (d *Daemon) Acquire() error {
	running, pid, err := d.IsRunning()
	if err != nil {
		return errors.Wrap(err, "error checking agent status")
	}
	if running && pid != os.Getpid() {
		return errors.Wrapf(ErrAlreadyRunning, "PID %d", pid)
	}
	return d.WritePID()
}

// Stop asks the running agent to terminate.
func (d *Daemon) Stop() error {
	running, pid, err := d.IsRunning()
	if err != nil {
		return errors.Wrap(err, "error checking agent status")
	}

	if !running {
		return errors.New("agent is not running or PID file is stale")
	}

	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		_ = d.RemovePID()
		return errors.Wrap(err, "agent process already terminated")
	}

	if err := proc.Terminate(); err != nil {
		return errors.Wrap(err, "failed to terminate agent")
	}

	return d.RemovePID()
}

// IsChild reports whether this process was started by Spawn.
func IsChild() bool {
	return os.Getenv(ChildEnv) == "1"
}

// Spawn re-executes the current binary with args, detached from the
// terminal, and returns the child PID.
func Spawn(args []string, logFile string) (int, error) {
	exe, err := os.Executable()
	if err != nil {
		return 0, errors.Wrap(err, "failed to locate executable")
	}

	cmd := exec.Command(exe, args...)
	cmd.Env = append(os.Environ(), ChildEnv+"=1")
	cmd.SysProcAttr = detachAttr()

	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
			return 0, errors.Wrap(err, "failed to create log directory")
		}
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return 0, errors.Wrap(err, "failed to open log file")
		}
		defer f.Close()
		cmd.Stdout = f
		cmd.Stderr = f
	}

	if err := cmd.Start(); err != nil {
		return 0, errors.Wrap(err, "failed to start agent process")
	}
	pid := cmd.Process.Pid
	_ = cmd.Process.Release()
	return pid, nil
}
