//go:build protogen

package roster

import (
	"context"
	"time"

	"github.com/printdesk/printdesk/libs/grpcx"
	peoplev1 "github.com/printdesk/printdesk/protos/gen/people/v1"
	"github.com/printdesk/printdesk/services/scheduling-service/internal/model"
)

// Provider fetches the live staff roster from the people service.
type Provider interface {
	ListStaff(ctx context.Context) ([]model.StaffMember, error)
}

type grpcProvider struct {
	client peoplev1.PeopleServiceClient
}

func NewProvider(addr string) (Provider, error) {
	if addr == "" {
		return nil, nil
	}
	conn, err := grpcx.Dial(context.Background(), addr, grpcx.DialOptions{Timeout: 3 * time.Second})
	if err != nil {
		return nil, err
	}
	return &grpcProvider{client: peoplev1.NewPeopleServiceClient(conn)}, nil
}

func (p *grpcProvider) ListStaff(ctx context.Context) ([]model.StaffMember, error) {
	resp, err := p.client.ListStaff(ctx, &peoplev1.ListStaffRequest{})
	if err != nil {
		return nil, err
	}

	members := make([]model.StaffMember, 0, len(resp.GetStaff()))
	for _, s := range resp.GetStaff() {
		m := model.StaffMember{
			ID:     s.GetId(),
			Name:   s.GetName(),
			Role:   s.GetRole(),
			Skills: s.GetSkills(),
			Hours:  map[time.Weekday]model.DayWindow{},
		}
		for _, h := range s.GetWorkingHours() {
			wd := int(h.GetWeekday())
			if wd < 0 || wd > 6 {
				continue
			}
			m.Available[time.Weekday(wd)] = h.GetIsWorking()
			if h.GetIsWorking() && h.GetEndMinute() > h.GetStartMinute() {
				m.Hours[time.Weekday(wd)] = model.DayWindow{
					StartMinute: int(h.GetStartMinute()),
					EndMinute:   int(h.GetEndMinute()),
				}
			}
		}
		for _, b := range s.GetBlockedTimes() {
			m.Blocked = append(m.Blocked, model.BlockedTime{
				Date:        b.GetDate(),
				StartMinute: int(b.GetStartMinute()),
				EndMinute:   int(b.GetEndMinute()),
				Reason:      b.GetReason(),
			})
		}
		members = append(members, m)
	}
	return members, nil
}
