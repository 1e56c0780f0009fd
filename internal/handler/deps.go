package handler

import (
	"humanorit/internal/app/game"
	"humanorit/internal/configs"
)

// AppDeps bundles the dependencies shared by the HTTP handlers.
type AppDeps struct {
	Manager *game.Manager
	Config  *configs.AppConfig
}
