package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/pterm/pterm"

	"betinho-miniapp/internal/models"
	"betinho-miniapp/internal/services"
)

func render(w io.Writer, data pterm.TableData) error {
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

func latestTable(events []models.GameEvent, catalog *services.Catalog) pterm.TableData {
	data := pterm.TableData{{"Block", "Game", "Title"}}
	for _, ev := range events {
		title := "-"
		if g, ok := catalog.FindByAddress(ev.GameAddress); ok {
			title = g.Title
		}
		data = append(data, []string{fmt.Sprint(ev.BlockNumber), ev.GameAddress, title})
	}
	return data
}

func infoTable(info models.GameInfo, ticker string) pterm.TableData {
	data := pterm.TableData{
		{"Field", "Value"},
		{"State", info.Status.State.String()},
		{"Expected end", info.Status.ExpectedEnd.Format("2006-01-02 15:04 MST")},
		{"Options", strings.Join(info.Options, ", ")},
		{"Total pool", models.FormatEther(info.TotalPool) + " " + ticker},
	}
	if info.Status.WinningOption != "" {
		data = append(data, []string{"Winner", info.Status.WinningOption})
	}
	return data
}

func betTable(bet models.PlayerBet, ticker string) pterm.TableData {
	if !bet.HasBet() {
		return pterm.TableData{{"Option", "Amount"}, {"-", "0 " + ticker}}
	}
	return pterm.TableData{
		{"Option", "Amount"},
		{bet.OptionName, models.FormatEther(bet.Amount) + " " + ticker},
	}
}

func txLine(what, hash, explorer string) string {
	return pterm.Success.Sprintf("%s: %s\n%s", what, hash, models.TxURL(explorer, hash))
}

func faucetLine(resp models.FaucetResponse, explorer string) string {
	if !resp.IsSuccess() {
		return pterm.Warning.Sprintf("%s", resp.Message)
	}
	return txLine(resp.Message, resp.TxHash, explorer)
}

func subscribeLine(resp models.FaucetResponse) string {
	if resp.Failed() {
		return pterm.Warning.Sprintf("%s", resp.Message)
	}
	return pterm.Success.Sprintf("Subscribed: %s", resp.Message)
}
