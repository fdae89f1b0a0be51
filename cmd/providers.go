/*
Copyright © 2020 A. Jensen <jensen.aaro@gmail.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ajjensen13/config"
	"github.com/ajjensen13/gke"
	"github.com/cenkalti/backoff/v4"
	"github.com/golang-migrate/migrate/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/ajjensen13/moexer/internal/api"
	"github.com/ajjensen13/moexer/internal/cache"
	"github.com/ajjensen13/moexer/internal/change"
	"github.com/ajjensen13/moexer/internal/db"
	"github.com/ajjensen13/moexer/internal/pipeline"
	"github.com/ajjensen13/moexer/internal/quote"
)

func provideAppConfig() (*appConfig, error) {
	var result appConfig
	err := config.InterfaceJson(appConfigName, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func provideDbSecrets() (*url.Userinfo, error) {
	ui, err := config.Userinfo(dbSecretName)
	if err != nil {
		return nil, err
	}
	return ui, nil
}

func provideTimezone(appConfig *appConfig) (*time.Location, error) {
	if appConfig.Timezone == "" {
		return time.LoadLocation("Europe/Moscow")
	}
	return time.LoadLocation(appConfig.Timezone)
}

func provideHttpClient() *http.Client {
	return &http.Client{Timeout: time.Minute}
}

func provideApiClient(cfg *appConfig, client *http.Client) *api.Client {
	return api.NewClient(cfg.ApiBaseURL, cfg.Board, client)
}

func provideStore(pool *pgxpool.Pool) *db.Store {
	return db.New(pool)
}

func provideCache(cfg *appConfig) (cache.Cache, func(), error) {
	if cfg.RedisAddr == "" {
		return cache.NewMemory(), func() {}, nil
	}

	r := cache.NewRedis(cfg.RedisAddr, cfg.RedisDb)
	return r, func() { _ = r.Close() }, nil
}

func provideCalculator(store *db.Store, tz *time.Location, cfg *appConfig) *change.Calculator {
	result := change.NewCalculator(store, tz)
	if cfg.PriceChangeBufferHours > 0 {
		result.Buffer = time.Duration(cfg.PriceChangeBufferHours) * time.Hour
	}
	return result
}

func provideBackoffFactory() func() backoff.BackOff {
	return pipeline.DefaultBackOff
}

func provideBackoffNotifier(lg gke.Logger) backoff.Notify {
	return func(err error, duration time.Duration) {
		if errors.Is(err, api.ErrTooManyRequests) {
			lg.Info(gke.NewFmtMsgData("request exceeded rate limit, waiting %v before retrying: %v", duration, err))
			return
		}
		lg.Warning(gke.NewFmtMsgData("request failed, waiting %v before retrying: %v", duration, err))
	}
}

func provideOrchestrator(client *api.Client, store *db.Store, c cache.Cache, calc *change.Calculator, tz *time.Location, cfg *appConfig, nb func() backoff.BackOff, bon backoff.Notify) *pipeline.Orchestrator {
	result := pipeline.New(client, store, c, calc, tz, cfg.Workers)
	result.NewBackOff = nb
	result.Notify = bon
	return result
}

func provideQuoteService(store *db.Store, c cache.Cache, tz *time.Location) *quote.Service {
	return quote.NewService(store, c, tz)
}

func provideDataSourceName(user *url.Userinfo, cfg *appConfig) (dsn *url.URL, err error) {
	dsn, err = url.Parse(cfg.DataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to parse data source name: %w", err)
	}
	dsn.User = user

	return dsn, nil
}

func provideDbConnPool(ctx context.Context, dsn *url.URL) (ret *pgxpool.Pool, cleanup func(), err error) {
	pool, err := pgxpool.Connect(ctx, dsn.String())
	if err != nil {
		return nil, func() {}, fmt.Errorf("failed to open database connection pool: %w", err)
	}

	return pool, pool.Close, nil
}

func provideMigrationSourceURL(cfg *appConfig) string {
	return cfg.MigrationSourceURL
}

func provideLogger() (lg gke.Logger, cleanup func()) {
	lg, cleanup, err := gke.NewLogger(context.Background())
	if err != nil {
		panic(err)
	}

	gke.LogEnv(lg)
	gke.LogMetadata(lg)

	return lg, cleanup
}

func provideMigrator(lg gke.Logger, databaseURL *url.URL, sourceURL string) (m *migrate.Migrate, err error) {
	m, err = migrate.New(sourceURL, databaseURL.String())
	if err != nil {
		return nil, err
	}
	m.Log = migrationLogger{lg}
	return m, err
}

type migrationLogger struct {
	gke.Logger
}

func (m migrationLogger) Printf(format string, v ...interface{}) {
	m.Defaultf(format, v...)
}

func (m migrationLogger) Verbose() bool {
	return false
}
