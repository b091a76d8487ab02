package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"absensi/internal/domain/visit"
)

func salesActor() *Actor { return &Actor{ID: "actor-1", Role: "sales", Status: "active"} }

func TestVisitResolver_ActiveVisitCached(t *testing.T) {
	clk := newFakeClock(testStart)
	att := &fakeAttendance{visits: []visit.Visit{
		{ID: "v-1", CustomerID: "c-1", CheckInAt: testStart.Add(-time.Hour)},
	}}
	r := NewVisitResolver(att, &fakeCustomers{}, &fakeAuth{actor: salesActor()}, clk)

	ctx := context.Background()
	v := r.ActiveVisit(ctx)
	require.NotNil(t, v)
	assert.Equal(t, "v-1", v.ID)
	require.Equal(t, 1, att.calls)

	// Within the cache ttl no second lookup happens.
	clk.Advance(4 * time.Minute)
	require.NotNil(t, r.ActiveVisit(ctx))
	assert.Equal(t, 1, att.calls)

	// Past the ttl it refreshes.
	clk.Advance(2 * time.Minute)
	r.ActiveVisit(ctx)
	assert.Equal(t, 2, att.calls)
}

func TestVisitResolver_ActiveVisitNilResultIsCachedToo(t *testing.T) {
	clk := newFakeClock(testStart)
	att := &fakeAttendance{}
	r := NewVisitResolver(att, &fakeCustomers{}, &fakeAuth{actor: salesActor()}, clk)

	ctx := context.Background()
	assert.Nil(t, r.ActiveVisit(ctx))
	assert.Nil(t, r.ActiveVisit(ctx))
	assert.Equal(t, 1, att.calls)
}

func TestVisitResolver_LookupFailureDegradesToNil(t *testing.T) {
	att := &fakeAttendance{err: errors.New("connection refused")}
	r := NewVisitResolver(att, &fakeCustomers{}, &fakeAuth{actor: salesActor()}, newFakeClock(testStart))

	assert.Nil(t, r.ActiveVisit(context.Background()))
}

func TestVisitResolver_UnauthenticatedYieldsNothing(t *testing.T) {
	att := &fakeAttendance{visits: []visit.Visit{
		{ID: "v-1", CustomerID: "c-1", CheckInAt: testStart},
	}}
	r := NewVisitResolver(att, &fakeCustomers{}, &fakeAuth{}, newFakeClock(testStart))

	assert.Nil(t, r.ActiveVisit(context.Background()))
	assert.Nil(t, r.RecentCustomers(context.Background(), 5))
	assert.Equal(t, 0, att.calls)
}

func TestVisitResolver_RecentCustomersResolvesNames(t *testing.T) {
	att := &fakeAttendance{visits: []visit.Visit{
		{ID: "v-1", CustomerID: "c-1", CheckInAt: testStart.Add(-48 * time.Hour)},
		{ID: "v-2", CustomerID: "c-2", CheckInAt: testStart.Add(-2 * time.Hour)},
		{ID: "v-3", CustomerID: "c-1", CheckInAt: testStart.Add(-24 * time.Hour)},
	}}
	cust := &fakeCustomers{customers: map[string]visit.Customer{
		"c-1": {ID: "c-1", Name: "Toko Maju"},
		"c-2": {ID: "c-2", Name: "Warung Sari"},
	}}
	r := NewVisitResolver(att, cust, &fakeAuth{actor: salesActor()}, newFakeClock(testStart))

	out := r.RecentCustomers(context.Background(), 5)
	require.Len(t, out, 2)
	assert.Equal(t, "Warung Sari", out[0].Customer.Name)
	assert.Equal(t, "Toko Maju", out[1].Customer.Name)
}

func TestVisitResolver_SuggestedCustomerPrefersActiveVisit(t *testing.T) {
	att := &fakeAttendance{visits: []visit.Visit{
		{ID: "v-old", CustomerID: "c-2", CheckInAt: testStart.Add(-26 * time.Hour), CheckOutAt: ptrTime(testStart.Add(-25 * time.Hour))},
		{ID: "v-now", CustomerID: "c-1", CheckInAt: testStart.Add(-time.Hour)},
	}}
	cust := &fakeCustomers{customers: map[string]visit.Customer{
		"c-1": {ID: "c-1", Name: "Toko Maju"},
	}}
	r := NewVisitResolver(att, cust, &fakeAuth{actor: salesActor()}, newFakeClock(testStart))

	sug := r.SuggestedCustomer(context.Background())
	require.NotNil(t, sug)
	assert.Equal(t, visit.SourceActiveVisit, sug.Source)
	assert.Equal(t, "Toko Maju", sug.Customer.Name)
	assert.Equal(t, "v-now", sug.VisitID)
}

func TestVisitResolver_SuggestedCustomerFallsBackToRecent(t *testing.T) {
	att := &fakeAttendance{visits: []visit.Visit{
		{ID: "v-1", CustomerID: "c-2", CheckInAt: testStart.Add(-26 * time.Hour), CheckOutAt: ptrTime(testStart.Add(-25 * time.Hour))},
	}}
	cust := &fakeCustomers{customers: map[string]visit.Customer{
		"c-2": {ID: "c-2", Name: "Warung Sari"},
	}}
	r := NewVisitResolver(att, cust, &fakeAuth{actor: salesActor()}, newFakeClock(testStart))

	sug := r.SuggestedCustomer(context.Background())
	require.NotNil(t, sug)
	assert.Equal(t, visit.SourceRecentVisit, sug.Source)
	assert.Equal(t, "Warung Sari", sug.Customer.Name)
}

func TestVisitResolver_SuggestedCustomerNone(t *testing.T) {
	r := NewVisitResolver(&fakeAttendance{}, &fakeCustomers{}, &fakeAuth{actor: salesActor()}, newFakeClock(testStart))
	assert.Nil(t, r.SuggestedCustomer(context.Background()))
}

func TestVisitResolver_CustomerByIDUsesNameCache(t *testing.T) {
	cust := &fakeCustomers{customers: map[string]visit.Customer{
		"c-1": {ID: "c-1", Name: "Toko Maju"},
	}}
	r := NewVisitResolver(&fakeAttendance{}, cust, &fakeAuth{actor: salesActor()}, newFakeClock(testStart))

	ctx := context.Background()
	c, err := r.CustomerByID(ctx, "c-1")
	require.NoError(t, err)
	require.NotNil(t, c)
	require.Equal(t, 1, cust.calls)

	_, err = r.CustomerByID(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, 1, cust.calls)

	r.ClearCache()
	_, err = r.CustomerByID(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, 2, cust.calls)
}

func TestVisitResolver_CustomerByIDSurfacesError(t *testing.T) {
	cust := &fakeCustomers{err: errors.New("connection refused")}
	r := NewVisitResolver(&fakeAttendance{}, cust, &fakeAuth{actor: salesActor()}, newFakeClock(testStart))

	_, err := r.CustomerByID(context.Background(), "c-1")
	assert.Error(t, err)
}

func TestVisitResolver_CustomerByIDNotFound(t *testing.T) {
	r := NewVisitResolver(&fakeAttendance{}, &fakeCustomers{}, &fakeAuth{actor: salesActor()}, newFakeClock(testStart))

	c, err := r.CustomerByID(context.Background(), "c-missing")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestVisitResolver_RefreshCacheRereadsImmediately(t *testing.T) {
	att := &fakeAttendance{}
	r := NewVisitResolver(att, &fakeCustomers{}, &fakeAuth{actor: salesActor()}, newFakeClock(testStart))

	ctx := context.Background()
	r.ActiveVisit(ctx)
	require.Equal(t, 1, att.calls)

	att.visits = []visit.Visit{{ID: "v-1", CustomerID: "c-1", CheckInAt: testStart}}
	v := r.RefreshCache(ctx)
	require.NotNil(t, v)
	assert.Equal(t, 2, att.calls)
}

func ptrTime(tm time.Time) *time.Time { return &tm }
