package cmd

// Platform providers register themselves with the platform registry.
import (
	_ "github.com/dosanma1/nextdeploy/internal/platform/aws"
	_ "github.com/dosanma1/nextdeploy/internal/platform/local"
	_ "github.com/dosanma1/nextdeploy/internal/platform/minio"
)
