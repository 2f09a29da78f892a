package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"github.com/Faitltd/FAIT-sub003/services/credit-service/internal/cli"
)

func main() {
	_ = godotenv.Load(".env")
	os.Exit(cli.Execute(context.Background()))
}
