// Package config loads typed configuration structs from the environment.
//
// It wraps github.com/caarlos0/env/v11 for tag-driven parsing and
// github.com/joho/godotenv for optional .env files. Every component owns its
// own Config struct (mongo.Config, stripe.Config, email.Config and so on);
// cmd/billingd loads them with Load at startup and passes them to constructors.
// Parsed structs are cached per type.
package config
