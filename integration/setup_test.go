package mqtiny_test

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"testing"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// broker is a running Mosquitto container.
type broker struct {
	tcp     string // tcp://localhost:port
	ws      string // ws://localhost:port
	cleanup func()
}

var (
	shared *broker

	cleanupMu         sync.Mutex
	containerCleanups []func()
)

func TestMain(m *testing.M) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGHUP, syscall.SIGTERM)
	go func() {
		<-c
		fmt.Println("\nReceived interrupt signal, cleaning up containers...")
		cleanupAll()
		os.Exit(1)
	}()

	var err error
	shared, err = startBroker("")
	if err != nil {
		fmt.Printf("Failed to start shared broker: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	cleanupAll()
	os.Exit(code)
}

func cleanupAll() {
	cleanupMu.Lock()
	defer cleanupMu.Unlock()
	for _, cleanup := range containerCleanups {
		cleanup()
	}
}

// freePort returns a TCP port nobody listens on.
func freePort() (string, error) {
	l, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return "", err
	}
	defer l.Close()
	return strconv.Itoa(l.Addr().(*net.TCPAddr).Port), nil
}

// startBroker starts Mosquitto with a TCP and a WebSocket listener. extra is
// appended to the generated mosquitto.conf.
func startBroker(extra string) (*broker, error) {
	ctx := context.Background()

	image := os.Getenv("MQTT_SERVER_IMAGE")
	if image == "" {
		image = "eclipse-mosquitto:2"
	}

	tcpPort, err := freePort()
	if err != nil {
		return nil, fmt.Errorf("failed to find free port: %w", err)
	}
	wsPort, err := freePort()
	if err != nil {
		return nil, fmt.Errorf("failed to find free port: %w", err)
	}

	conf := fmt.Sprintf("listener %s\nlistener %s\nprotocol websockets\nallow_anonymous true\n%s", tcpPort, wsPort, extra)
	tmp, err := os.CreateTemp("", "mosquitto-*.conf")
	if err != nil {
		return nil, fmt.Errorf("failed to create config file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(conf); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to write config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to close config file: %w", err)
	}

	req := testcontainers.ContainerRequest{
		Image: image,
		// Host networking avoids bridge setup, which fails on some rootless hosts.
		HostConfigModifier: func(hc *container.HostConfig) {
			hc.NetworkMode = "host"
		},
		Files: []testcontainers.ContainerFile{{
			HostFilePath:      tmp.Name(),
			ContainerFilePath: "/mosquitto/config/mosquitto.conf",
			FileMode:          0644,
		}},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort(nat.Port(tcpPort+"/tcp")),
			wait.ForListeningPort(nat.Port(wsPort+"/tcp")),
		),
	}

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start broker container: %w", err)
	}

	var once sync.Once
	b := &broker{
		tcp: "tcp://localhost:" + tcpPort,
		ws:  "ws://localhost:" + wsPort,
		cleanup: func() {
			once.Do(func() {
				if err := c.Terminate(ctx); err != nil {
					fmt.Printf("Failed to terminate container: %v\n", err)
				}
			})
		},
	}

	cleanupMu.Lock()
	containerCleanups = append(containerCleanups, b.cleanup)
	cleanupMu.Unlock()
	return b, nil
}

// sharedBroker returns the broker started by TestMain.
func sharedBroker(t *testing.T) *broker {
	t.Helper()
	if shared == nil {
		t.Skip("no shared broker")
	}
	return shared
}
