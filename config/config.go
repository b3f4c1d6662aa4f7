package config

import (
	"time"

	"github.com/avelazco/cursoteca/database"
)

type Config struct {
	Web     Web
	DB      database.Config
	Cors    Cors
	Session Session
	Rate    Rate
}

type Web struct {
	Address         string        `conf:"default:0.0.0.0:3000"`
	ReadTimeout     time.Duration `conf:"default:5s"`
	WriteTimeout    time.Duration `conf:"default:10s"`
	IdleTimeout     time.Duration `conf:"default:120s"`
	ShutdownTimeout time.Duration `conf:"default:20s"`
}

type Cors struct {
	Origin string
}

type Session struct {
	Lifetime time.Duration `conf:"default:24h"`
}

type Rate struct {
	Burst    int           `conf:"default:20"`
	Interval time.Duration `conf:"default:50ms"`
	Expiry   int           `conf:"default:60"`
}
