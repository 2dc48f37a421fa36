package services_test

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"testing"

	"github.com/HerbHall/grandline/internal/apperr"
	"github.com/HerbHall/grandline/internal/query"
	"github.com/HerbHall/grandline/internal/services"
	"github.com/HerbHall/grandline/internal/testutil"
	"github.com/HerbHall/grandline/pkg/models"
)

func newCatalog(t *testing.T) *services.Catalog {
	t.Helper()
	return services.NewCatalog(testutil.NewStore(t).DB())
}

func payload(t *testing.T, body string) services.Payload {
	t.Helper()
	var p services.Payload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		t.Fatalf("payload %s: %v", body, err)
	}
	return p
}

func wantCode(t *testing.T, err error, code apperr.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("err = nil, want %s", code)
	}
	if got := apperr.As(err).Code; got != code {
		t.Errorf("code = %s, want %s (err: %v)", got, code, err)
	}
}

func TestRepository_GetInvalidID(t *testing.T) {
	cat := newCatalog(t)
	for _, id := range []int64{0, -1} {
		_, err := cat.Characters.Get(context.Background(), id)
		wantCode(t, err, apperr.CodeInvalidID)
	}
}

func TestRepository_GetNotFound(t *testing.T) {
	cat := newCatalog(t)
	_, err := cat.Races.Get(context.Background(), 42)
	wantCode(t, err, apperr.CodeNotFound)
	if apperr.As(err).Kind != apperr.KindNotFound {
		t.Errorf("kind = %v, want not_found", apperr.As(err).Kind)
	}
}

func TestRepository_CreateAndGet(t *testing.T) {
	cat := newCatalog(t)
	ctx := context.Background()

	race, err := cat.Races.Create(ctx, payload(t, `{"name": "Human", "description": "  Most common race  "}`))
	if err != nil {
		t.Fatalf("Create race: %v", err)
	}
	if race.Description == nil || *race.Description != "Most common race" {
		t.Errorf("Description = %v, want trimmed text", race.Description)
	}

	c, err := cat.Characters.Create(ctx, payload(t, fmt.Sprintf(
		`{"name": " Nami ", "alias": "   ", "age": 20, "bounty": 366000000, "race_id": %d, "id": 999}`, race.ID)))
	if err != nil {
		t.Fatalf("Create character: %v", err)
	}
	if c.ID <= 0 {
		t.Errorf("ID = %d, want positive", c.ID)
	}
	if c.ID == 999 {
		t.Error("client-supplied id was written")
	}
	if c.Name != "Nami" {
		t.Errorf("Name = %q, want Nami", c.Name)
	}
	if c.Alias != nil {
		t.Errorf("Alias = %q, want nil for blank input", *c.Alias)
	}
	if c.Status != models.CharacterAlive {
		t.Errorf("Status = %q, want store default alive", c.Status)
	}
	if c.RaceID == nil || *c.RaceID != race.ID {
		t.Errorf("RaceID = %v, want %d", c.RaceID, race.ID)
	}
	if c.CreatedAt.IsZero() || c.UpdatedAt.IsZero() {
		t.Error("timestamps not set")
	}

	first, err := cat.Characters.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	second, err := cat.Characters.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("Get again: %v", err)
	}
	if first.Name != second.Name || first.Bounty != second.Bounty || !first.UpdatedAt.Equal(second.UpdatedAt) {
		t.Errorf("Get not idempotent: %+v vs %+v", first, second)
	}
	if first.Bounty != 366000000 || first.Age == nil || *first.Age != 20 {
		t.Errorf("round trip mismatch: %+v", first)
	}
}

func TestRepository_CreateValidation(t *testing.T) {
	cat := newCatalog(t)
	ctx := context.Background()

	tests := []struct {
		name string
		body string
		code apperr.Code
	}{
		{"missing name", `{"bounty": 1}`, apperr.CodeMissingName},
		{"blank name", `{"name": "   "}`, apperr.CodeMissingName},
		{"null name", `{"name": null}`, apperr.CodeMissingName},
		{"numeric name", `{"name": 12}`, "INVALID_NAME"},
		{"negative bounty", `{"name": "A", "bounty": -1}`, "INVALID_BOUNTY"},
		{"fractional age", `{"name": "A", "age": 1.5}`, "INVALID_AGE"},
		{"string age", `{"name": "A", "age": "old"}`, "INVALID_AGE"},
		{"bad status", `{"name": "A", "status": "retired"}`, "INVALID_STATUS"},
		{"null status", `{"name": "A", "status": null}`, "INVALID_STATUS"},
		{"zero race", `{"name": "A", "race_id": 0}`, "INVALID_RACE_ID"},
		{"missing race", `{"name": "A", "race_id": 999}`, "INVALID_RACE_ID"},
		{"alias not text", `{"name": "A", "alias": true}`, "INVALID_ALIAS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := cat.Characters.Create(ctx, payload(t, tt.body))
			wantCode(t, err, tt.code)
			if apperr.As(err).Kind != apperr.KindValidation {
				t.Errorf("kind = %v, want validation", apperr.As(err).Kind)
			}
		})
	}

	res, err := cat.Characters.List(ctx, query.Options{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if res.Pagination.TotalItems != 0 {
		t.Errorf("rows written by failed creates: %d", res.Pagination.TotalItems)
	}
}

func TestRepository_CreateEnumCaseInsensitive(t *testing.T) {
	cat := newCatalog(t)
	org, err := cat.Organizations.Create(context.Background(),
		payload(t, `{"name": "Straw Hat Pirates", "organization_type": "PIRATE_CREW", "status": "Active"}`))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if org.OrganizationType == nil || *org.OrganizationType != models.OrgPirateCrew {
		t.Errorf("OrganizationType = %v, want pirate_crew", org.OrganizationType)
	}
	if org.Status != models.OrgActive {
		t.Errorf("Status = %q, want active", org.Status)
	}
	if org.TotalBounty != 0 {
		t.Errorf("TotalBounty = %d, want default 0", org.TotalBounty)
	}
}

func TestRepository_CreateDuplicateName(t *testing.T) {
	cat := newCatalog(t)
	ctx := context.Background()

	if _, err := cat.Ships.Create(ctx, payload(t, `{"name": "Thousand Sunny"}`)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err := cat.Ships.Create(ctx, payload(t, `{"name": "Thousand Sunny", "status": "destroyed"}`))
	wantCode(t, err, apperr.CodeDuplicateName)
	if apperr.As(err).Kind != apperr.KindConflict {
		t.Errorf("kind = %v, want conflict", apperr.As(err).Kind)
	}

	if _, err := cat.Ships.Create(ctx, payload(t, `{"name": "thousand sunny"}`)); err != nil {
		t.Errorf("names differing only in case should be distinct: %v", err)
	}
}

func TestRepository_Update(t *testing.T) {
	cat := newCatalog(t)
	ctx := context.Background()

	c, err := cat.Characters.Create(ctx, payload(t, `{"name": "Usopp", "alias": "Sogeking", "bounty": 500000000}`))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := cat.Characters.Update(ctx, c.ID, payload(t, `{"alias": null, "status": "unknown"}`))
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Alias != nil {
		t.Errorf("Alias = %q, want cleared", *got.Alias)
	}
	if got.Status != models.CharacterUnknown {
		t.Errorf("Status = %q, want unknown", got.Status)
	}
	if got.Bounty != 500000000 {
		t.Errorf("Bounty = %d, unsupplied column changed", got.Bounty)
	}
	if got.Name != "Usopp" {
		t.Errorf("Name = %q, unsupplied column changed", got.Name)
	}

	if _, err := cat.Characters.Update(ctx, c.ID, payload(t, `{"name": "Usopp"}`)); err != nil {
		t.Errorf("renaming to own name: %v", err)
	}
}

func TestRepository_UpdateErrors(t *testing.T) {
	cat := newCatalog(t)
	ctx := context.Background()

	a, err := cat.Races.Create(ctx, payload(t, `{"name": "Fishman"}`))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := cat.Races.Create(ctx, payload(t, `{"name": "Mink"}`)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	tests := []struct {
		name string
		id   int64
		body string
		code apperr.Code
	}{
		{"empty body", a.ID, `{}`, apperr.CodeNoFieldsProvided},
		{"only unknown keys", a.ID, `{"id": 4, "created_at": "x"}`, apperr.CodeNoFieldsProvided},
		{"invalid id", -1, `{"name": "X"}`, apperr.CodeInvalidID},
		{"absent row", 999, `{"name": "X"}`, apperr.CodeNotFound},
		{"duplicate name", a.ID, `{"name": "Mink"}`, apperr.CodeDuplicateName},
		{"blank name", a.ID, `{"name": ""}`, apperr.CodeMissingName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := cat.Races.Update(ctx, tt.id, payload(t, tt.body))
			wantCode(t, err, tt.code)
		})
	}

	// An empty payload is rejected even when the row does not exist.
	_, err = cat.Races.Update(ctx, 999, payload(t, `{}`))
	wantCode(t, err, apperr.CodeNoFieldsProvided)
}

func TestRepository_Delete(t *testing.T) {
	cat := newCatalog(t)
	ctx := context.Background()

	s, err := cat.Ships.Create(ctx, payload(t, `{"name": "Going Merry"}`))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := cat.Ships.Delete(ctx, s.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	_, err = cat.Ships.Get(ctx, s.ID)
	wantCode(t, err, apperr.CodeNotFound)

	wantCode(t, cat.Ships.Delete(ctx, s.ID), apperr.CodeNotFound)
	wantCode(t, cat.Ships.Delete(ctx, 0), apperr.CodeInvalidID)
}

func TestRepository_DeleteReferenced(t *testing.T) {
	st := testutil.NewStore(t)
	cat := services.NewCatalog(st.DB())
	ctx := context.Background()
	db := st.DB()

	race := testutil.InsertNamed(t, db, "races", "Giant")
	char := testutil.InsertCharacter(t, db, testutil.NewCharacter(testutil.WithRace(race)))

	err := cat.Races.Delete(ctx, race)
	wantCode(t, err, apperr.CodeInUse)
	if _, err := cat.Races.Get(ctx, race); err != nil {
		t.Errorf("race removed despite reference: %v", err)
	}

	haki := testutil.InsertNamed(t, db, "haki_types", "Haoshoku")
	testutil.Link(t, db, "character_haki", "character_id", "haki_type_id", char, haki)

	wantCode(t, cat.HakiTypes.Delete(ctx, haki), apperr.CodeHasAssociations)
	wantCode(t, cat.Characters.Delete(ctx, char), apperr.CodeHasAssociations)
	if _, err := cat.Characters.Get(ctx, char); err != nil {
		t.Errorf("character removed despite association: %v", err)
	}
}

func TestRepository_ListPagination(t *testing.T) {
	st := testutil.NewStore(t)
	cat := services.NewCatalog(st.DB())
	for i := 1; i <= 25; i++ {
		testutil.InsertCharacter(t, st.DB(), testutil.NewCharacter(
			testutil.WithName(fmt.Sprintf("Pirate %02d", i)),
			testutil.WithBounty(int64(i*1000)),
		))
	}

	res, err := cat.Characters.List(context.Background(), query.Options{Page: 2, Limit: 5})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(res.Items) != 5 {
		t.Fatalf("len(Items) = %d, want 5", len(res.Items))
	}
	want := query.Pagination{Page: 2, Limit: 5, TotalItems: 25, TotalPages: 5, HasNext: true, HasPrev: true}
	if res.Pagination != want {
		t.Errorf("Pagination = %+v, want %+v", res.Pagination, want)
	}
	if res.Items[0].Name != "Pirate 06" {
		t.Errorf("Items[0].Name = %q, want Pirate 06", res.Items[0].Name)
	}

	res, err = cat.Characters.List(context.Background(), query.Options{Limit: 1000})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if res.Pagination.Limit != query.MaxLimit || len(res.Items) != 25 {
		t.Errorf("clamped list: limit=%d items=%d", res.Pagination.Limit, len(res.Items))
	}
}

func TestRepository_ListHugePage(t *testing.T) {
	st := testutil.NewStore(t)
	cat := services.NewCatalog(st.DB())
	for _, name := range []string{"Human", "Fishman", "Mink"} {
		testutil.InsertNamed(t, st.DB(), "races", name)
	}

	v := url.Values{"page": {strconv.Itoa(math.MaxInt)}, "limit": {"10"}}
	res, err := cat.Races.List(context.Background(), query.FromValues(v))
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(res.Items) != 0 {
		t.Errorf("len(Items) = %d, want 0 for a page past the end", len(res.Items))
	}
	if res.Pagination.TotalItems != 3 || res.Pagination.HasNext {
		t.Errorf("Pagination = %+v", res.Pagination)
	}
}

func TestRepository_ListFiltersAndSort(t *testing.T) {
	st := testutil.NewStore(t)
	cat := services.NewCatalog(st.DB())
	db := st.DB()
	ctx := context.Background()

	human := testutil.InsertNamed(t, db, "races", "Human")
	testutil.InsertCharacter(t, db, testutil.NewCharacter(testutil.WithName("Monkey D. Luffy"),
		testutil.WithAlias("Straw Hat"), testutil.WithBounty(3_000_000_000), testutil.WithRace(human)))
	testutil.InsertCharacter(t, db, testutil.NewCharacter(testutil.WithName("Portgas D. Ace"),
		testutil.WithBounty(550_000_000), testutil.WithStatus(models.CharacterDeceased), testutil.WithRace(human)))
	testutil.InsertCharacter(t, db, testutil.NewCharacter(testutil.WithName("Jinbe"),
		testutil.WithBounty(1_100_000_000)))

	list := func(v url.Values) []string {
		t.Helper()
		res, err := cat.Characters.List(ctx, query.FromValues(v))
		if err != nil {
			t.Fatalf("List(%v): %v", v, err)
		}
		names := make([]string, len(res.Items))
		for i, c := range res.Items {
			names[i] = c.Name
		}
		return names
	}

	tests := []struct {
		name   string
		values url.Values
		want   []string
	}{
		{"default sort by name", url.Values{}, []string{"Jinbe", "Monkey D. Luffy", "Portgas D. Ace"}},
		{"sort bounty desc", url.Values{"sortBy": {"bounty"}, "sortOrder": {"DESC"}}, []string{"Monkey D. Luffy", "Jinbe", "Portgas D. Ace"}},
		{"unknown sort falls back", url.Values{"sortBy": {"secret"}}, []string{"Jinbe", "Monkey D. Luffy", "Portgas D. Ace"}},
		{"search alias", url.Values{"search": {"Straw"}}, []string{"Monkey D. Luffy"}},
		{"search is case-sensitive", url.Values{"search": {"straw"}}, []string{}},
		{"race filter", url.Values{"race_id": {fmt.Sprint(human)}}, []string{"Monkey D. Luffy", "Portgas D. Ace"}},
		{"bounty range", url.Values{"min_bounty": {"600000000"}, "max_bounty": {"2000000000"}}, []string{"Jinbe"}},
		{"is_alive false", url.Values{"is_alive": {"false"}}, []string{"Portgas D. Ace"}},
		{"status", url.Values{"status": {"Alive"}}, []string{"Jinbe", "Monkey D. Luffy"}},
		{"unknown param ignored", url.Values{"color": {"red"}}, []string{"Jinbe", "Monkey D. Luffy", "Portgas D. Ace"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := list(tt.values)
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("names = %v, want %v", got, tt.want)
			}
		})
	}

	_, err := cat.Characters.List(ctx, query.FromValues(url.Values{"min_bounty": {"abc"}}))
	wantCode(t, err, "INVALID_MIN_BOUNTY")
}
