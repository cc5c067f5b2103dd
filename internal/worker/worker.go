// Package worker implements tickdb's process pool: the parent binds the
// listening socket and opens every table once, then re-execs itself N
// times, handing each child the listener's file descriptor. Go's runtime
// can't safely fork(2) once extra OS threads exist, so this is the
// idiomatic substitute graceful-restart tools like cloudflare/tableflip
// and facebookgo/grace also use.
package worker

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"sync"

	"github.com/rs/zerolog/log"
)

// WorkerEnvVar marks a re-exec'd process as a worker rather than the
// parent that should fork children.
const WorkerEnvVar = "TICKDB_WORKER"

// IsWorker reports whether this process was re-exec'd as a worker.
func IsWorker() bool {
	return os.Getenv(WorkerEnvVar) == "1"
}

// BindListener opens the shared TCP listener the parent hands down to
// every worker.
func BindListener(addr string) (*net.TCPListener, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("worker: could not listen on %s: %w", addr, err)
	}
	return l.(*net.TCPListener), nil
}

// RunParent re-execs the current binary numProcs times, passing listener's
// duplicated fd through ExtraFiles, and waits on all of them. A worker's
// exit is logged, not propagated — per the pool's "a worker crash does not
// bring the parent down" guarantee, the parent does not re-fork it.
func RunParent(numProcs int, listener *net.TCPListener) error {
	lf, err := listener.File()
	if err != nil {
		return fmt.Errorf("worker: could not dup listener fd: %w", err)
	}
	defer lf.Close()

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("worker: could not resolve executable path: %w", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < numProcs; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			cmd := exec.Command(exe, os.Args[1:]...)
			cmd.ExtraFiles = []*os.File{lf}
			cmd.Env = append(os.Environ(), WorkerEnvVar+"=1")
			cmd.Stdout = os.Stdout
			cmd.Stderr = os.Stderr

			log.Info().Int("worker", id).Msg("starting worker")
			if err := cmd.Run(); err != nil {
				log.Error().Err(err).Int("worker", id).Msg("worker exited")
				return
			}
			log.Info().Int("worker", id).Msg("worker exited cleanly")
		}(i)
	}
	wg.Wait()
	return nil
}
