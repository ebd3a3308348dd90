package api

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"capdraft/engine"
	"capdraft/notify"
	"capdraft/store"
)

type ServerImpl struct {
	store       *store.Store
	processor   *engine.Processor
	streamSink  *notify.StreamSink
	redisClient *redis.Client
	wg          sync.WaitGroup
	cancelFunc  context.CancelFunc

	config ServerConfig
}

func NewServer(config ServerConfig) (*ServerImpl, error) {
	const op = "NewServer"

	st, err := store.Open(config.DB)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to open store, err=%w", op, err)
	}

	impl := &ServerImpl{
		store:  st,
		config: config,
	}

	// Redis is optional: without it the per-item distributed lock degrades to
	// database row locks only and events stay in the notification table.
	var sink engine.Sink = notify.NopSink{}
	if config.Redis.Addr != "" {
		impl.redisClient = redis.NewClient(&redis.Options{
			Addr:     config.Redis.Addr,
			Password: config.Redis.Password,
			DB:       config.Redis.DB,
		})
		streamSink, err := notify.NewStreamSink(impl.redisClient, config.Redis.StreamKeys.Events, slog.Default())
		if err != nil {
			return nil, fmt.Errorf("[%s] Fail to create stream sink, err=%w", op, err)
		}
		impl.streamSink = streamSink
		sink = streamSink
	}

	impl.processor = engine.NewProcessor(st, engine.WithSink(sink))
	return impl, nil
}

// Register wires the route table onto the given router.
func (impl *ServerImpl) Register(router *gin.Engine) {
	apiGroup := router.Group("/api")

	apiGroup.POST("/rooms", impl.PostRoom)
	apiGroup.PATCH("/rooms/:roomID/status", impl.PatchRoomStatus)
	apiGroup.PUT("/rooms/:roomID/settings", impl.PutRoomSettings)
	apiGroup.POST("/rooms/:roomID/teams", impl.PostTeam)
	apiGroup.POST("/rooms/:roomID/items", impl.PostItems)
	apiGroup.GET("/rooms/:roomID/sync", impl.GetRoomSync)

	apiGroup.GET("/items/:itemID", impl.GetItemState)
	apiGroup.POST("/rooms/:roomID/items/:itemID/bids", impl.PostBid)
	apiGroup.DELETE("/rooms/:roomID/items/:itemID/bid", impl.DeleteBid)
	apiGroup.POST("/rooms/:roomID/items/:itemID/unsold", impl.PostUnsold)

	apiGroup.GET("/teams/:teamID/notifications", impl.GetNotifications)
	apiGroup.POST("/teams/:teamID/notifications/ack", impl.PostNotificationsAck)
}

// Start launches the background pieces: the stream producer and the
// finalization worker that settles expired items.
func (impl *ServerImpl) Start() {
	if impl.streamSink != nil {
		impl.streamSink.Start()
	}
	ctx, cancel := context.WithCancel(context.Background())
	impl.cancelFunc = cancel

	if impl.config.Finalize.Interval > 0 {
		slog.Info("Start finalization worker", slog.Duration("interval", impl.config.Finalize.Interval))
		impl.wg.Add(1)
		go func() {
			defer impl.wg.Done()
			defer slog.Info("Finalization worker stopped")
			impl.runFinalizer(ctx)
		}()
	}
}

func (impl *ServerImpl) Close() {
	if impl.cancelFunc != nil {
		impl.cancelFunc()
	}
	impl.wg.Wait()
	if impl.streamSink != nil {
		impl.streamSink.Close()
	}
	if impl.redisClient != nil {
		impl.redisClient.Close()
	}
}
