package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"log/slog"

	"openmic/internal/api"
	"openmic/internal/daemon"
	"openmic/internal/logging"
	"openmic/internal/logs"
	"openmic/internal/songs"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Openmic", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually or rerun openmic daemon stop"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

func (s *service) Submit(req SubmitRequest, resp *SubmitResponse) error {
	song, err := s.daemon.Submit(s.ctx, daemon.SubmitRequest{
		Title:         req.Title,
		Artist:        req.Artist,
		UserID:        req.UserID,
		UserName:      req.UserName,
		UserColor:     req.UserColor,
		Quality:       req.Quality,
		StageTimeouts: req.StageTimeouts,
	})
	if err != nil {
		return err
	}
	resp.Song = api.FromSong(song)
	s.log().Info("song submitted via IPC",
		logging.String(logging.FieldSongID, song.ID),
		logging.String(logging.FieldEventType, "song_submit"))
	return nil
}

func (s *service) Resubmit(req ResubmitRequest, resp *ResubmitResponse) error {
	if err := s.daemon.Resubmit(s.ctx, req.ID); err != nil {
		return err
	}
	resp.Accepted = true
	s.log().Info("song resubmitted via IPC",
		logging.String(logging.FieldSongID, req.ID),
		logging.String(logging.FieldEventType, "song_resubmit"))
	return nil
}

func (s *service) Cancel(req CancelRequest, resp *CancelResponse) error {
	if err := s.daemon.Cancel(s.ctx, req.ID); err != nil {
		return err
	}
	resp.Cancelled = true
	s.log().Info("song cancelled via IPC",
		logging.String(logging.FieldSongID, req.ID),
		logging.String(logging.FieldEventType, "song_cancel"))
	return nil
}

func (s *service) SongStatus(req SongStatusRequest, resp *SongStatusResponse) error {
	song, err := s.daemon.Song(s.ctx, req.ID)
	if err != nil {
		return err
	}
	resp.Song = api.FromSong(song)
	return nil
}

func (s *service) QueueList(req QueueListRequest, resp *QueueListResponse) error {
	var (
		items []*songs.Song
		err   error
	)
	if req.All {
		items, err = s.daemon.AllSongs(s.ctx)
	} else {
		statuses := make([]songs.Status, 0, len(req.Statuses))
		for _, raw := range req.Statuses {
			parsed, ok := songs.ParseStatus(raw)
			if !ok {
				continue
			}
			statuses = append(statuses, parsed)
		}
		items, err = s.daemon.Queue(s.ctx, statuses)
	}
	if err != nil {
		return err
	}
	resp.Songs = api.FromSongs(items)
	stats, err := s.daemon.QueueStats(s.ctx)
	if err != nil {
		return err
	}
	resp.Counts = api.MergeQueueStats(stats)
	return nil
}

func (s *service) NowPlaying(_ NowPlayingRequest, resp *NowPlayingResponse) error {
	song, err := s.daemon.NowPlaying(s.ctx)
	if err != nil {
		return err
	}
	if song == nil {
		return nil
	}
	view := api.FromSong(song)
	resp.Playing = true
	resp.Song = &view
	return nil
}

func (s *service) AdvanceQueue(_ AdvanceQueueRequest, resp *AdvanceQueueResponse) error {
	promoted, err := s.daemon.Advance(s.ctx)
	if err != nil {
		return err
	}
	if promoted == nil {
		return nil
	}
	view := api.FromSong(promoted)
	resp.Promoted = true
	resp.Song = &view
	s.log().Info("queue advanced via IPC",
		logging.String(logging.FieldSongID, promoted.ID),
		logging.String(logging.FieldEventType, "queue_advance"))
	return nil
}

func (s *service) CacheStats(_ CacheStatsRequest, resp *CacheStatsResponse) error {
	stats, err := s.daemon.CacheStats(s.ctx)
	if err != nil {
		return err
	}
	resp.Stats = api.FromCacheStats(stats)
	return nil
}

func (s *service) CacheEvict(req CacheEvictRequest, resp *CacheEvictResponse) error {
	result, err := s.daemon.CacheEvict(s.ctx, req.MaxAgeDays, req.MaxEntries)
	if err != nil {
		return err
	}
	resp.AgeEvicted = result.AgeEvicted
	resp.CountEvicted = result.CountEvicted
	s.log().Info("cache sweep run via IPC",
		logging.Int("age_evicted", result.AgeEvicted),
		logging.Int("count_evicted", result.CountEvicted),
		logging.String(logging.FieldEventType, "cache_evict"))
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.PID = status.PID
	resp.DatabasePath = status.DatabasePath
	resp.LockPath = status.LockFilePath
	resp.SocketPath = status.SocketPath
	resp.QueueStats = api.MergeQueueStats(status.QueueStats)
	if status.NowPlaying != nil {
		view := api.FromSong(status.NowPlaying)
		resp.NowPlaying = &view
	}
	if status.UpNext != nil {
		view := api.FromSong(status.UpNext)
		resp.UpNext = &view
	}
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.log().Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	s.log().Info("daemon stopped via IPC",
		logging.String(logging.FieldEventType, "daemon_stop"))
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	logPath := s.daemon.LogPath()
	if logPath == "" {
		resp.Offset = 0
		return nil
	}
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if wait <= 0 && req.Follow {
		wait = time.Second
	}
	ctx := s.ctx
	if req.Follow && wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}
	result, err := logs.Tail(ctx, logPath, logs.TailOptions{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   wait,
	})
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	return nil
}
