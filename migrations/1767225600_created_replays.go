package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

func init() {
	m.Register(func(app core.App) error {
		users, err := app.FindCollectionByNameOrId("users")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("replays")

		// owner-only access
		collection.ListRule = types.Pointer("user = @request.auth.id")
		collection.ViewRule = types.Pointer("user = @request.auth.id")
		collection.CreateRule = nil
		collection.UpdateRule = nil
		collection.DeleteRule = types.Pointer("user = @request.auth.id")

		collection.Fields.Add(
			&core.RelationField{
				Name:          "user",
				CollectionId:  users.Id,
				Required:      true,
				MaxSelect:     1,
				CascadeDelete: true,
			},
			&core.TextField{Name: "url", Required: true},
			&core.TextField{Name: "format"},
			&core.NumberField{Name: "rating", OnlyInt: true},
			&core.TextField{Name: "battle_date"},
			&core.JSONField{Name: "players"},
			&core.JSONField{Name: "teams"},
			&core.JSONField{Name: "selected_pokemon"},
			&core.NumberField{Name: "total_turns", OnlyInt: true},
			&core.DateField{Name: "battle_start_time"},
			&core.TextField{Name: "winner_name"},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		collection.AddIndex("idx_replays_user_url", true, "`user`, `url`", "")
		collection.AddIndex("idx_replays_user_format", false, "`user`, `format`", "")
		collection.AddIndex("idx_replays_battle_start_time", false, "`battle_start_time`", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("replays")
		if err != nil {
			return err
		}

		return app.Delete(collection)
	})
}
