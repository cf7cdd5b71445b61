package subgraph

import (
	"context"
	"math/big"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

// -------------------------------------------------------------------------------------
// Geyser
// -------------------------------------------------------------------------------------

const geyserQuery = `
query geyser($geyserID: Geyser_filter, $blockHeight: Block_height, $lastStakedId: StakedEvent_filter, $lastUnstakedId: UnstakedEvent_filter, $first: Int) {
  geysers(where: $geyserID, block: $blockHeight) {
    id
    totalStaked
    stakeEvents(first: $first, where: $lastStakedId, orderBy: id) {
      id
      user
      amount
      timestamp
      total
    }
    unstakeEvents(first: $first, where: $lastUnstakedId, orderBy: id) {
      id
      user
      amount
      timestamp
      total
    }
  }
}`

type rawGeyserEvent struct {
	ID        string `json:"id"`
	User      string `json:"user"`
	Amount    string `json:"amount"`
	Timestamp string `json:"timestamp"`
	Total     string `json:"total"`
}

type geyserResponse struct {
	Geysers []struct {
		ID            string           `json:"id"`
		TotalStaked   string           `json:"totalStaked"`
		StakeEvents   []rawGeyserEvent `json:"stakeEvents"`
		UnstakeEvents []rawGeyserEvent `json:"unstakeEvents"`
	} `json:"geysers"`
}

// GeyserEvents returns every stake and unstake of the geyser as of block. Stakes and
// unstakes page independently in the same query until both come back empty.
func (c *Client) GeyserEvents(ctx context.Context, geyserID string, block uint64) (GeyserEvents, error) {
	c.log.Info().Str("geyser", geyserID).Uint64("block", block).Msg("fetching geyser events")

	out := GeyserEvents{TotalStaked: new(big.Int)}
	stakeCursor, unstakeCursor := NewCursor(), NewCursor()
	for {
		var resp geyserResponse
		vars := map[string]interface{}{
			"geyserID":       idFilter(geyserID),
			"blockHeight":    blockHeight(block),
			"lastStakedId":   idGt(stakeCursor.Last()),
			"lastUnstakedId": idGt(unstakeCursor.Last()),
			"first":          c.pageSize,
		}
		if err := c.query(ctx, c.subgraph, "geysers", geyserQuery, vars, &resp); err != nil {
			return GeyserEvents{}, err
		}
		if len(resp.Geysers) == 0 {
			return GeyserEvents{TotalStaked: new(big.Int)}, nil
		}

		geyser := resp.Geysers[0]
		total, err := parseBig("totalStaked", geyser.TotalStaked)
		if err != nil {
			return GeyserEvents{}, err
		}
		out.TotalStaked = total

		if len(geyser.StakeEvents) == 0 && len(geyser.UnstakeEvents) == 0 {
			break
		}
		if out.Stakes, err = appendGeyserEvents(out.Stakes, geyser.StakeEvents, stakeCursor); err != nil {
			return GeyserEvents{}, err
		}
		if out.Unstakes, err = appendGeyserEvents(out.Unstakes, geyser.UnstakeEvents, unstakeCursor); err != nil {
			return GeyserEvents{}, err
		}
	}

	c.log.Info().Int("stakes", len(out.Stakes)).Int("unstakes", len(out.Unstakes)).Msg("processed geyser events")
	return out, nil
}

func appendGeyserEvents(out []GeyserEvent, page []rawGeyserEvent, cursor *Cursor) ([]GeyserEvent, error) {
	for _, r := range page {
		amount, err := parseBig("amount", r.Amount)
		if err != nil {
			return nil, err
		}
		total, err := parseBig("total", r.Total)
		if err != nil {
			return nil, err
		}
		timestamp, err := cast.ToInt64E(r.Timestamp)
		if err != nil {
			return nil, errors.Wrap(err, "timestamp")
		}
		out = append(out, GeyserEvent{ID: r.ID, User: r.User, Amount: amount, Total: total, Timestamp: timestamp})
	}
	if len(page) > 0 {
		cursor.Advance(page[len(page)-1].ID)
	}
	return out, nil
}

// -------------------------------------------------------------------------------------
// Harvests
// -------------------------------------------------------------------------------------

const farmHarvestsQuery = `
query farm_harvests($lastId: FarmHarvestEvent_filter, $first: Int) {
  farmHarvestEvents(first: $first, where: $lastId, orderBy: id) {
    id
    farmToRewards
    blockNumber
    totalFarmHarvested
    timestamp
  }
}`

type rawFarmHarvest struct {
	ID                 string `json:"id"`
	FarmToRewards      string `json:"farmToRewards"`
	BlockNumber        string `json:"blockNumber"`
	TotalFarmHarvested string `json:"totalFarmHarvested"`
	Timestamp          string `json:"timestamp"`
}

// FarmHarvestEvents returns every Harvest farm harvest ordered by block.
func (c *Client) FarmHarvestEvents(ctx context.Context) ([]FarmHarvestEvent, error) {
	fetch := func(ctx context.Context, after string, first int) ([]rawFarmHarvest, error) {
		var resp struct {
			Events []rawFarmHarvest `json:"farmHarvestEvents"`
		}
		vars := map[string]interface{}{"lastId": idGt(after), "first": first}
		if err := c.query(ctx, c.subgraph, "farmHarvestEvents", farmHarvestsQuery, vars, &resp); err != nil {
			return nil, err
		}
		return resp.Events, nil
	}
	raw, err := FetchAll(ctx, NewCursor(), c.pageSize, fetch, func(e rawFarmHarvest) string { return e.ID })
	if err != nil {
		return nil, err
	}

	events := make([]FarmHarvestEvent, 0, len(raw))
	for _, r := range raw {
		e := FarmHarvestEvent{ID: r.ID}
		if e.RewardAmount, err = parseBig("farmToRewards", r.FarmToRewards); err != nil {
			return nil, err
		}
		if e.TotalFarmHarvested, err = parseBig("totalFarmHarvested", r.TotalFarmHarvested); err != nil {
			return nil, err
		}
		if e.BlockNumber, err = cast.ToInt64E(r.BlockNumber); err != nil {
			return nil, errors.Wrap(err, "blockNumber")
		}
		if e.Timestamp, err = cast.ToInt64E(r.Timestamp); err != nil {
			return nil, errors.Wrap(err, "timestamp")
		}
		events = append(events, e)
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].BlockNumber < events[j].BlockNumber })
	return events, nil
}

const sushiHarvestsQuery = `
query sushi_harvests($lastId: SushiHarvestEvent_filter, $first: Int) {
  sushiHarvestEvents(first: $first, where: $lastId, orderBy: id) {
    id
    xSushiHarvested
    totalxSushi
    toStrategist
    toBadgerTree
    toGovernance
    timestamp
    blockNumber
  }
}`

type rawSushiHarvest struct {
	ID              string `json:"id"`
	XSushiHarvested string `json:"xSushiHarvested"`
	TotalXSushi     string `json:"totalxSushi"`
	ToStrategist    string `json:"toStrategist"`
	ToBadgerTree    string `json:"toBadgerTree"`
	ToGovernance    string `json:"toGovernance"`
	Timestamp       string `json:"timestamp"`
	BlockNumber     string `json:"blockNumber"`
}

// SushiHarvestEvents returns the harvests of the sushi strategies, grouped by strategy
// and ordered by block. Harvests of other strategies are dropped.
func (c *Client) SushiHarvestEvents(ctx context.Context) (SushiHarvests, error) {
	fetch := func(ctx context.Context, after string, first int) ([]rawSushiHarvest, error) {
		var resp struct {
			Events []rawSushiHarvest `json:"sushiHarvestEvents"`
		}
		vars := map[string]interface{}{"lastId": idGt(after), "first": first}
		if err := c.query(ctx, c.subgraph, "sushiHarvestEvents", sushiHarvestsQuery, vars, &resp); err != nil {
			return nil, err
		}
		return resp.Events, nil
	}
	raw, err := FetchAll(ctx, NewCursor(), c.pageSize, fetch, func(e rawSushiHarvest) string { return e.ID })
	if err != nil {
		return SushiHarvests{}, err
	}

	var out SushiHarvests
	for _, r := range raw {
		e, err := convertSushiHarvest(r)
		if err != nil {
			return SushiHarvests{}, errors.Wrapf(err, "sushi harvest %s", r.ID)
		}
		switch strings.ToLower(strings.SplitN(r.ID, "-", 2)[0]) {
		case WbtcEthStrategy:
			out.WbtcEth = append(out.WbtcEth, e)
		case WbtcBadgerStrategy:
			out.WbtcBadger = append(out.WbtcBadger, e)
		case WbtcDiggStrategy:
			out.WbtcDigg = append(out.WbtcDigg, e)
		}
	}
	for _, bucket := range [][]SushiHarvestEvent{out.WbtcEth, out.WbtcBadger, out.WbtcDigg} {
		sort.SliceStable(bucket, func(i, j int) bool { return bucket[i].BlockNumber < bucket[j].BlockNumber })
	}
	return out, nil
}

func convertSushiHarvest(r rawSushiHarvest) (e SushiHarvestEvent, err error) {
	e.ID = r.ID
	if e.XSushiHarvested, err = parseBig("xSushiHarvested", r.XSushiHarvested); err != nil {
		return
	}
	if e.TotalXSushi, err = parseBig("totalxSushi", r.TotalXSushi); err != nil {
		return
	}
	if e.ToStrategist, err = parseBig("toStrategist", r.ToStrategist); err != nil {
		return
	}
	if e.RewardAmount, err = parseBig("toBadgerTree", r.ToBadgerTree); err != nil {
		return
	}
	if e.ToGovernance, err = parseBig("toGovernance", r.ToGovernance); err != nil {
		return
	}
	if e.BlockNumber, err = cast.ToInt64E(r.BlockNumber); err != nil {
		return
	}
	e.Timestamp, err = cast.ToInt64E(r.Timestamp)
	return
}
