package machiavelli

import "time"

// Snapshot is a read-only view of the table for status pages. It never
// includes the cards themselves.
type Snapshot struct {
	Id         string       `json:"id"`
	Phase      Phase        `json:"phase"`
	Turn       int          `json:"turn"`
	SeatCount  int          `json:"seatCount"`
	PileCount  int          `json:"pileCount"`
	MeldCount  int          `json:"meldCount"`
	Winner     int          `json:"winner"`
	Moves      int          `json:"moves"`
	Draws      int          `json:"draws"`
	StartedAt  time.Time    `json:"startedAt"`
	FinishedAt time.Time    `json:"finishedAt"`
	Seats      []SeatStatus `json:"seats"`
}

type SeatStatus struct {
	Seat       int    `json:"seat"`
	Occupied   bool   `json:"occupied"`
	PlayerId   int    `json:"playerId"`
	Name       string `json:"name"`
	HandLength int    `json:"handLength"`
	Admin      bool   `json:"admin"`
}

func (g *Game) Snapshot() Snapshot {
	seats := make([]SeatStatus, 0, len(g.Players))
	for seat, p := range g.Players {
		seats = append(seats, GetSeatStatus(seat, p))
	}

	return Snapshot{
		Id:         g.Id,
		Phase:      g.Phase,
		Turn:       g.Turn,
		SeatCount:  g.SeatCount(),
		PileCount:  g.Table.Deck.Count(),
		MeldCount:  len(g.Table.Melds),
		Winner:     g.Winner,
		Moves:      g.Moves,
		Draws:      g.Draws,
		StartedAt:  g.StartedAt,
		FinishedAt: g.FinishedAt,
		Seats:      seats,
	}
}

func GetSeatStatus(seat int, p *Player) SeatStatus {
	if p == nil {
		return SeatStatus{Seat: seat, PlayerId: -1}
	}
	return SeatStatus{
		Seat:       seat,
		Occupied:   true,
		PlayerId:   p.Id,
		Name:       p.Name,
		HandLength: len(p.Hand),
		Admin:      p.Admin,
	}
}
