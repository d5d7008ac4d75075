package agent

import (
	"context"
	"fmt"
	"io"
	"os/exec"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/basket/murmur/internal/murmurerr"
)

// SandboxBackend runs an agent binary inside a short-lived container
// instead of a bare subprocess, for callers that don't trust the agent
// with direct host access. It wraps an inner Backend for command-shape
// knowledge and replaces only the spawn mechanics.
type SandboxBackend struct {
	Inner       Backend
	Client      *client.Client
	Image       string
	MemoryMB    int64
	NetworkMode string
}

// NewSandboxBackend builds a SandboxBackend around inner, connecting to
// the local Docker daemon via the environment (DOCKER_HOST etc).
func NewSandboxBackend(inner Backend, image string, memoryMB int64, networkMode string) (*SandboxBackend, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, murmurerr.Agentf("docker client", err)
	}
	if image == "" {
		image = "golang:alpine"
	}
	if memoryMB <= 0 {
		memoryMB = 512
	}
	if networkMode == "" {
		networkMode = "none"
	}
	return &SandboxBackend{Inner: inner, Client: cli, Image: image, MemoryMB: memoryMB, NetworkMode: networkMode}, nil
}

func (b *SandboxBackend) Name() string { return b.Inner.Name() + "-sandboxed" }

// BuildCommand delegates to the wrapped backend purely for its argv shape;
// the returned *exec.Cmd is never started directly, only inspected for
// Path/Args when assembling the container's entrypoint.
func (b *SandboxBackend) BuildCommand(workdir string) *exec.Cmd {
	return b.Inner.BuildCommand(workdir)
}

func (b *SandboxBackend) IsAvailable() bool {
	_, err := b.Client.Ping(context.Background())
	return err == nil
}

// Spawn creates and starts a container running the backend's binary against
// a bind-mounted workdir, and returns a Process streaming its demultiplexed
// stdout.
func (b *SandboxBackend) Spawn(ctx context.Context, prompt, workdir string) (Process, error) {
	cmd := b.Inner.BuildCommand("/workspace")
	args := append(append([]string{}, cmd.Args...), prompt)

	resp, err := b.Client.ContainerCreate(ctx, &container.Config{
		Image:      b.Image,
		Cmd:        args,
		WorkingDir: "/workspace",
		Tty:        false,
	}, &container.HostConfig{
		Resources:   container.Resources{Memory: b.MemoryMB * 1024 * 1024},
		NetworkMode: container.NetworkMode(b.NetworkMode),
		Binds:       []string{fmt.Sprintf("%s:/workspace", workdir)},
		AutoRemove:  true,
	}, nil, nil, "")
	if err != nil {
		return nil, murmurerr.Agentf("create sandbox container", err)
	}

	if err := b.Client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return nil, murmurerr.Agentf("start sandbox container", err)
	}

	return &SandboxHandle{
		client:      b.Client,
		containerID: resp.ID,
		prompt:      prompt,
		workdir:     workdir,
	}, nil
}

// SandboxHandle is the Process implementation for a container-backed agent.
type SandboxHandle struct {
	client      *client.Client
	containerID string
	prompt      string
	workdir     string
}

func (h *SandboxHandle) Prompt() string  { return h.prompt }
func (h *SandboxHandle) Workdir() string { return h.workdir }
func (h *SandboxHandle) PID() int        { return 0 } // no host PID for a container

// Stdout demultiplexes the container's combined log stream into a pipe
// carrying stdout only, matching the plain line-delimited reader the
// Streamer expects.
func (h *SandboxHandle) Stdout() io.Reader {
	logs, err := h.client.ContainerLogs(context.Background(), h.containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
	})
	if err != nil {
		pr, pw := io.Pipe()
		pw.CloseWithError(err)
		return pr
	}

	pr, pw := io.Pipe()
	go func() {
		defer logs.Close()
		_, copyErr := stdcopy.StdCopy(pw, io.Discard, logs)
		pw.CloseWithError(copyErr)
	}()
	return pr
}

func (h *SandboxHandle) Wait() (exitCode int, err error) {
	statusCh, errCh := h.client.ContainerWait(context.Background(), h.containerID, container.WaitConditionNotRunning)
	select {
	case waitErr := <-errCh:
		return -1, murmurerr.Io(waitErr)
	case status := <-statusCh:
		return int(status.StatusCode), nil
	}
}

func (h *SandboxHandle) Kill() error {
	if err := h.client.ContainerKill(context.Background(), h.containerID, "SIGKILL"); err != nil {
		return murmurerr.Io(err)
	}
	return nil
}
