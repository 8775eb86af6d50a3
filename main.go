package main

import (
	"context"
	"fmt"
	"time"

	"LinkupIM/config"
	"LinkupIM/logger"
	midsec "LinkupIM/middleware/security"
	"LinkupIM/module/chat/graph"
	"LinkupIM/module/chat/handler"
	chatmodel "LinkupIM/module/chat/model"
	chatsvc "LinkupIM/module/chat/service"
	"LinkupIM/module/chat/store"
	gw "LinkupIM/service/chat"
	"LinkupIM/service/kafka"
	"LinkupIM/service/mgo"
	"LinkupIM/service/natsx"
	"LinkupIM/service/storage"
	"LinkupIM/tools/security"

	"github.com/gin-gonic/gin"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	config.ConfigIds()

	if err := config.ConfigRedis(); err != nil {
		logger.Errorf("redis init failed: %v", err)
		return
	}

	mgo.StartAsync(ctx, config.MongoConfig())
	select {
	case <-mgo.Ready():
	case <-time.After(30 * time.Second):
		logger.Errorf("mongo not ready: %v", mgo.Err())
		return
	}
	db := mgo.GetDB()

	ensureCtx, ensureCancel := context.WithTimeout(ctx, 10*time.Second)
	defer ensureCancel()
	conv := chatmodel.Conversation{}
	msg := chatmodel.Message{}
	if err := conv.EnsureIndexes(ensureCtx); err != nil {
		logger.Errorf("conversation indexes: %v", err)
		return
	}
	if err := msg.EnsureIndexes(ensureCtx); err != nil {
		logger.Errorf("message indexes: %v", err)
		return
	}

	nc, err := natsx.Init(natsx.Config{URL: config.Global.NatsURL, Name: config.Global.GatewayID})
	if err != nil {
		logger.Errorf("nats init failed: %v", err)
		return
	}
	defer nc.Close()

	jwtOpts := security.DefaultOptions(config.GetJwtSecret())
	server := gw.NewServer(gw.ServerConf{
		GatewayID: config.Global.GatewayID,
		JWT:       jwtOpts,
	}, nc, storage.NewRedisPresence())

	if _, err := nc.SubscribeDeliver(config.Global.GatewayID, server.DeliverLocal); err != nil {
		logger.Errorf("nats subscribe failed: %v", err)
		return
	}

	var events chatsvc.EventSink
	if len(config.Global.KafkaBrokers) > 0 && config.Global.KafkaTopic != "" {
		ep, err := kafka.NewEventProducer(kafka.Config{
			Brokers: config.Global.KafkaBrokers,
			Topic:   config.Global.KafkaTopic,
		})
		if err != nil {
			logger.Errorf("kafka init failed: %v", err)
			return
		}
		defer func() { _ = ep.Close() }()
		events = ep
	}

	svc := chatsvc.NewChatService(
		store.NewMongoStore(db),
		graph.NewMongoGraph(db),
		server,
		events,
	)

	r := gin.Default()
	authOpts := midsec.DefaultOptions(jwtOpts)
	handler.NewHandler(svc, 5*time.Second).RegisterRoutes(r, authOpts)
	r.GET("/ws", server.HandleWS)

	addr := fmt.Sprintf(":%d", config.Global.Port)
	logger.Infof("gateway %s listening on %s", config.Global.GatewayID, addr)
	if err := r.Run(addr); err != nil {
		logger.Errorf("http server: %v", err)
	}
}
