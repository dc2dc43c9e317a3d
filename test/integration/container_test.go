//go:build integration

package integration

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

const postgresImage = "postgres:16-alpine"

func docker(ctx context.Context, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, "docker", args...).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("docker %s: %w: %s", args[0], err, out)
	}
	return strings.TrimSpace(string(out)), nil
}

// startPostgresContainer boots a throwaway database on a docker-assigned
// loopback port. Data lives on tmpfs and the container removes itself on stop.
func startPostgresContainer(ctx context.Context) (string, func(), error) {
	id, err := docker(ctx, "run", "-d", "--rm",
		"-p", "127.0.0.1::5432",
		"--tmpfs", "/var/lib/postgresql/data",
		"-e", "POSTGRES_USER=clinica",
		"-e", "POSTGRES_PASSWORD=clinica",
		"-e", "POSTGRES_DB=clinica_test",
		"-e", "TZ=UTC",
		postgresImage,
	)
	if err != nil {
		return "", nil, err
	}
	stop := func() { _, _ = docker(context.Background(), "stop", id) }

	hostPort, err := docker(ctx, "port", id, "5432/tcp")
	if err != nil {
		stop()
		return "", nil, err
	}
	// "docker port" may list one binding per line.
	hostPort, _, _ = strings.Cut(hostPort, "\n")
	if _, _, err := net.SplitHostPort(hostPort); err != nil {
		stop()
		return "", nil, fmt.Errorf("unexpected port mapping %q", hostPort)
	}

	url := fmt.Sprintf("postgres://clinica:clinica@%s/clinica_test?sslmode=disable", hostPort)
	if err := awaitReady(ctx, url, 30*time.Second); err != nil {
		stop()
		return "", nil, err
	}
	return url, stop, nil
}

func awaitReady(ctx context.Context, url string, limit time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()
	tick := time.NewTicker(300 * time.Millisecond)
	defer tick.Stop()

	var lastErr error
	for {
		conn, err := pgx.Connect(ctx, url)
		if err == nil {
			err = conn.Ping(ctx)
			conn.Close(ctx)
			if err == nil {
				return nil
			}
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres not ready after %v: %w", limit, lastErr)
		case <-tick.C:
		}
	}
}
