package tui

import (
	"ga4bq/internal/bigquery"
)

type ProjectsLoadedMsg struct {
	Projects []*bigquery.Project
}

type ErrorMsg struct {
	Error error
}
