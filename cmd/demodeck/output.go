package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dukex/demodeck/pkg/catalogsync"
	"github.com/dukex/demodeck/pkg/models"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

func printJSONLine(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}

func printSyncResult(w io.Writer, result *catalogsync.Result) {
	fmt.Fprintf(w, "Synced %s.%s (%s, %s) at %s\n",
		result.Namespace, result.CollectionName, result.Mode, result.Provenance, result.CollectionPath)

	if result.Degraded {
		fmt.Fprintln(w, "warning: collection identity taken from the configuration")
	}
}

func printDemos(w io.Writer, defs []models.DemoDefinition) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tKIND\tPATH\tPARAMETERS")

	for _, def := range defs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", def.ID, def.Name, def.Kind, def.Path, len(def.Parameters))
	}

	_ = tw.Flush()
}

func printInstances(w io.Writer, list []*models.Instance) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDEMO\tSTATE\tCREATED\tMESSAGE")

	for _, instance := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			instance.ID,
			instance.Spec.DemoID,
			instance.Status.State,
			instance.Spec.CreatedAt.Local().Format(time.DateTime),
			statusDetail(instance.Status),
		)
	}

	_ = tw.Flush()
}

func printStatusLine(w io.Writer, instance *models.Instance) {
	fmt.Fprintf(w, "%s %s %s\n", time.Now().Format(time.TimeOnly), instance.Status.State, statusDetail(instance.Status))
}

func statusDetail(status *models.InstanceStatus) string {
	if status.Error != "" {
		return status.Error
	}

	return status.Message
}
