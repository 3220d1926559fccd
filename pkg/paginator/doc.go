// Package paginator drives incremental loading of remote lists.
//
// A Paginator fetches pages through an injected FetchFunc, accumulates them in
// fetch order, projects every element through a filtering Transform and
// publishes three observable values: the LoadingState of the latest fetch,
// the accumulated Items and the AllLoaded flag.
//
// Example usage:
//
//	p, err := paginator.New(paginator.Config[twitch.TopGame, twitch.GameItem]{
//		Name:      "games_top",
//		Fetch:     twitch.GamesFetcher(client, 20),
//		Transform: twitch.GameToItem,
//		Executor:  loop,
//	})
//	p.Items().Subscribe(render)
//	p.LoadFirst(ctx)
//	// later, when the "load more" row becomes visible:
//	p.LoadNext(ctx)
//
// Guarantees:
//   - Every issued fetch carries a generation; a result is applied only if its
//     generation is still the latest, so a reload always wins over older requests.
//   - LoadNext is a no-op while loading and after the last page.
//   - A failed LoadFirst/Reload leaves the list empty; a failed LoadNext keeps
//     the items already loaded.
//   - Errors from the fetch function are published unmodified and never retried.
//   - Related values are stored before observers are notified, so observers
//     never see a mix of old and new state.
package paginator
