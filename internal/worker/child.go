package worker

import (
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"
)

// listenerFD is the well-known descriptor a worker's single ExtraFiles
// entry lands on: 0, 1, 2 are stdin/stdout/stderr, so the first
// inherited extra file is 3.
const listenerFD = 3

// ListenerFromParent reconstructs the shared net.Listener a worker
// inherited from the parent's ExtraFiles.
func ListenerFromParent() (net.Listener, error) {
	f := os.NewFile(listenerFD, "tickdb-listener")
	return net.FileListener(f)
}

// InstallSigintHandler exits immediately on SIGINT. Some embedded
// runtimes install their own handler that doesn't exit; signal.Notify
// always supersedes it, giving the same effect as the original's
// SA_NODEFER disposition.
func InstallSigintHandler() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGINT)
	go func() {
		<-ch
		log.Info().Msg("received SIGINT, exiting")
		os.Exit(0)
	}()
}

// Serve runs handler off l one request at a time, blocking until the
// listener is closed or its Accept fails.
func Serve(l net.Listener, handler http.Handler) error {
	var mu sync.Mutex
	sequential := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		handler.ServeHTTP(w, r)
	})
	srv := &http.Server{Handler: sequential}
	return srv.Serve(l)
}
