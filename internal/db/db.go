package db

import (
	"github.com/rs/zerolog/log"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/atelier-ai/atelier/internal/chat"
	"github.com/atelier-ai/atelier/internal/content"
	"github.com/atelier-ai/atelier/internal/models"
)

func Connect(dsn string) *gorm.DB {
	gdb, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}
	return gdb
}

// Migrate keeps the schema in sync with the model structs. Called by
// both the server and the worker on startup.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&models.Plan{},
		&models.User{},
		&chat.Chat{},
		&chat.Message{},
		&chat.Attachment{},
		&content.GeneratedContent{},
		&content.Project{},
		&content.VideoJob{},
	)
}
