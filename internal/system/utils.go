// Package system provides OS-level utilities: the PID file, dropping
// privileges, and a health check of the playlist directory and device.
package system

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"strconv"
	"strings"
	"time"

	"amplayd/internal/movie"

	"golang.org/x/sys/unix"
)

// ErrAlreadyRunning is returned when another process holds the PID file.
var ErrAlreadyRunning = errors.New("already running")

// PIDFile is a locked file holding the daemon's process ID. The lock is held
// for as long as the file is open, so a stale file left by a crash does not
// block the next start.
type PIDFile struct {
	path string
	f    *os.File
}

// CreatePIDFile creates and locks the PID file at path and writes the current
// process ID to it.
func CreatePIDFile(path string) (*PIDFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create pid file: %w", err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		defer f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, alreadyRunning(path)
		}
		return nil, fmt.Errorf("lock pid file: %w", err)
	}

	if err := f.Truncate(0); err != nil {
		f.Close()
		return nil, fmt.Errorf("truncate pid file: %w", err)
	}
	if _, err := f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("write pid file: %w", err)
	}

	return &PIDFile{path: path, f: f}, nil
}

// alreadyRunning names the PID held in path, if it can be read.
func alreadyRunning(path string) error {
	data, err := os.ReadFile(path)
	pid := strings.TrimSpace(string(data))
	if err != nil || pid == "" {
		return ErrAlreadyRunning
	}
	return fmt.Errorf("%w as PID %s", ErrAlreadyRunning, pid)
}

// Path returns the PID file location.
func (p *PIDFile) Path() string { return p.path }

// Chown hands the PID file to another user so it can still be removed after
// privileges are dropped.
func (p *PIDFile) Chown(uid, gid int) error {
	return p.f.Chown(uid, gid)
}

// Remove deletes the PID file and releases the lock.
func (p *PIDFile) Remove() error {
	err := os.Remove(p.path)
	if cerr := p.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// Account is a resolved user to run as.
type Account struct {
	Name string
	UID  int
	GID  int
}

// LookupAccount resolves a user name to its numeric IDs.
func LookupAccount(name string) (Account, error) {
	u, err := user.Lookup(name)
	if err != nil {
		return Account{}, fmt.Errorf("could not find user %q: %w", name, err)
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return Account{}, fmt.Errorf("user %q: bad uid %q", name, u.Uid)
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return Account{}, fmt.Errorf("user %q: bad gid %q", name, u.Gid)
	}
	return Account{Name: u.Username, UID: uid, GID: gid}, nil
}

// DropPrivileges switches the process to the given account. The group is
// changed first since that is no longer permitted once the user is switched.
func DropPrivileges(a Account) error {
	if err := unix.Setgroups([]int{a.GID}); err != nil {
		return fmt.Errorf("set groups for %s: %w", a.Name, err)
	}
	if err := unix.Setgid(a.GID); err != nil {
		return fmt.Errorf("set gid %d: %w", a.GID, err)
	}
	if err := unix.Setuid(a.UID); err != nil {
		return fmt.Errorf("set uid %d: %w", a.UID, err)
	}
	return nil
}

// HealthStatus is a snapshot of what the daemon needs to run.
type HealthStatus struct {
	PlaylistDir   string    `json:"playlist_dir"`
	Movies        int       `json:"movies"`
	PlaylistError string    `json:"playlist_error,omitempty"`
	Device        string    `json:"device"`
	DevicePresent bool      `json:"device_present"`
	DeviceIsChar  bool      `json:"device_is_char"`
	DeviceError   string    `json:"device_error,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// OK reports whether the daemon could start playing right now.
func (s HealthStatus) OK() bool {
	return s.PlaylistError == "" && s.DeviceError == "" && s.Movies > 0
}

// CountMovies returns the number of movie files in dir.
func CountMovies(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, entry := range entries {
		if !entry.IsDir() && movie.IsMovie(entry.Name()) {
			n++
		}
	}
	return n, nil
}

// CheckDevice reports whether the device file exists and is a character
// device.
func CheckDevice(path string) (present, isChar bool, err error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, false, nil
		}
		return false, false, err
	}
	return true, info.Mode()&fs.ModeCharDevice != 0, nil
}

// RunHealthCheck inspects the playlist directory and the device.
func RunHealthCheck(playlistDir, devicePath string) HealthStatus {
	status := HealthStatus{
		PlaylistDir: playlistDir,
		Device:      devicePath,
		Timestamp:   time.Now(),
	}

	if n, err := CountMovies(playlistDir); err == nil {
		status.Movies = n
	} else {
		status.PlaylistError = err.Error()
	}

	present, isChar, err := CheckDevice(devicePath)
	status.DevicePresent = present
	status.DeviceIsChar = isChar
	switch {
	case err != nil:
		status.DeviceError = err.Error()
	case !present:
		status.DeviceError = "not attached"
	}

	return status
}
