//go:build wireinject
// +build wireinject

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
	"net/url"

	"github.com/ajjensen13/gke"
	"github.com/golang-migrate/migrate/v4"
	"github.com/google/wire"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/ajjensen13/moexer/internal/pipeline"
	"github.com/ajjensen13/moexer/internal/quote"
)

func logger() (lg gke.Logger, cleanup func()) {
	panic(wire.Build(provideLogger))
}

func dataSourceName() (dsn *url.URL, err error) {
	panic(wire.Build(provideDataSourceName, provideDbSecrets, provideAppConfig))
}

func migrationSourceURL() (uri string, err error) {
	panic(wire.Build(provideMigrationSourceURL, provideAppConfig))
}

func migrator(lg gke.Logger) (m *migrate.Migrate, err error) {
	panic(wire.Build(provideMigrator, migrationSourceURL, dataSourceName))
}

func openPool(ctx context.Context) (*pgxpool.Pool, func(), error) {
	panic(wire.Build(provideDbConnPool, provideDataSourceName, provideDbSecrets, provideAppConfig))
}

func orchestrator(lg gke.Logger, pool *pgxpool.Pool) (*pipeline.Orchestrator, func(), error) {
	panic(wire.Build(provideOrchestrator, provideApiClient, provideHttpClient, provideStore, provideCache, provideCalculator, provideTimezone, provideBackoffFactory, provideBackoffNotifier, provideAppConfig))
}

func quotes(pool *pgxpool.Pool) (*quote.Service, func(), error) {
	panic(wire.Build(provideQuoteService, provideStore, provideCache, provideTimezone, provideAppConfig))
}
