// Package mpd reads the library of a Music Player Daemon over its protocol.
package mpd

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/fhs/gompd/v2/mpd"
	"github.com/rs/zerolog/log"
)

// ErrNotConnected is returned before a connection has been made.
var ErrNotConnected = errors.New("not connected")

// Client is a reconnecting MPD connection plus an optional idle watcher.
// Library reads redial once if the previous connection went away.
type Client struct {
	addr     string
	password string

	mu      sync.RWMutex
	conn    *mpd.Client
	watcher *mpd.Watcher
}

// NewClient returns an unconnected client for host:port.
func NewClient(host string, port int, password string) *Client {
	return &Client{
		addr:     net.JoinHostPort(host, strconv.Itoa(port)),
		password: password,
	}
}

// Addr returns the host:port the client dials.
func (c *Client) Addr() string { return c.addr }

// Connect dials MPD and authenticates when a password is set.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dial()
}

func (c *Client) dial() error {
	log.Info().Str("addr", c.addr).Msg("Connecting to MPD")

	conn, err := mpd.DialAuthenticated("tcp", c.addr, c.password)
	if err != nil {
		return fmt.Errorf("failed to connect to MPD at %s: %w", c.addr, err)
	}
	c.conn = conn
	log.Info().Str("addr", c.addr).Msg("Connected to MPD")
	return nil
}

// reconnect makes sure a live connection exists.
func (c *Client) reconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		if err := c.conn.Ping(); err == nil {
			return nil
		}
		log.Warn().Str("addr", c.addr).Msg("MPD connection lost, reconnecting")
		c.conn.Close()
		c.conn = nil
	}
	return c.dial()
}

// call runs fn on a live connection.
func call[T any](c *Client, fn func(*mpd.Client) (T, error)) (T, error) {
	var zero T
	if err := c.reconnect(); err != nil {
		return zero, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.conn == nil {
		return zero, ErrNotConnected
	}
	return fn(c.conn)
}

// Close closes the connection and the watcher.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.watcher != nil {
		c.watcher.Close()
		c.watcher = nil
	}
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// Ping checks the current connection without redialing.
func (c *Client) Ping() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.conn == nil {
		return ErrNotConnected
	}
	return c.conn.Ping()
}

// Stats returns database statistics (songs, artists, db_update, ...).
func (c *Client) Stats() (mpd.Attrs, error) {
	return call(c, (*mpd.Client).Stats)
}

// ListAllInfo lists all songs and directories under uri.
func (c *Client) ListAllInfo(uri string) ([]mpd.Attrs, error) {
	return call(c, func(conn *mpd.Client) ([]mpd.Attrs, error) {
		return conn.ListAllInfo(uri)
	})
}

// FindFile returns the song entry for an exact file URI.
func (c *Client) FindFile(uri string) ([]mpd.Attrs, error) {
	return call(c, func(conn *mpd.Client) ([]mpd.Attrs, error) {
		// each song starts at its "file" key
		return conn.Command("find file %s", uri).AttrsList("file")
	})
}

// ReadPicture returns the picture embedded in a song's tags.
func (c *Client) ReadPicture(uri string) ([]byte, error) {
	return call(c, func(conn *mpd.Client) ([]byte, error) {
		return conn.ReadPicture(uri)
	})
}

// AlbumArt returns the cover file stored next to a song.
func (c *Client) AlbumArt(uri string) ([]byte, error) {
	return call(c, func(conn *mpd.Client) ([]byte, error) {
		return conn.AlbumArt(uri)
	})
}

// Watch reports changed subsystems on the returned channel until the client
// is closed. Changes arriving while one is still unread are dropped; a
// reader only needs to know that something changed since its last look.
func (c *Client) Watch(subsystems ...string) (<-chan string, error) {
	watcher, err := mpd.NewWatcher("tcp", c.addr, c.password, subsystems...)
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	c.mu.Lock()
	if c.watcher != nil {
		c.watcher.Close()
	}
	c.watcher = watcher
	c.mu.Unlock()

	ch := make(chan string, 1)
	go func() {
		defer close(ch)
		for {
			select {
			case subsystem, ok := <-watcher.Event:
				if !ok {
					return
				}
				select {
				case ch <- subsystem:
				default:
					log.Debug().Str("subsystem", subsystem).Msg("MPD change already pending")
				}
			case err, ok := <-watcher.Error:
				if !ok {
					return
				}
				log.Error().Err(err).Msg("MPD watcher error")
				time.Sleep(time.Second)
			}
		}
	}()

	return ch, nil
}
