/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/carverauto/daemonfleet/cmd/fleet/app"
	"github.com/carverauto/daemonfleet/pkg/logger"
	"github.com/carverauto/daemonfleet/pkg/version"
)

func main() {
	if err := run(); err != nil {
		logger.Fatal().Err(err).Msg("Fatal error")
	}
}

func run() error {
	configPath := flag.String("config", "/etc/serviceradar/fleet.json", "Path to fleet config file")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.GetFullVersion())
		return nil
	}

	return app.Run(context.Background(), app.Options{ConfigPath: *configPath})
}
