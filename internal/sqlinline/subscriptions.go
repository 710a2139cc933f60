package sqlinline

const subscriptionColumns = `id, user_id, query, mode, to_char(delivery_time, 'HH24:MI'), timezone, locale, enabled, flagged, last_successful_delivery, created_at, updated_at`

const QUpsertSubscription = `--sql 7c2f4b1e-9d3a-4e8b-a1c5-2f6d8e0b4a97
insert into subscriptions (id, user_id, query, mode, delivery_time, timezone, locale, enabled)
values ($1, $2, $3, $4, $5::time, $6, $7, $8)
on conflict (user_id) do update
set query = excluded.query,
    mode = excluded.mode,
    delivery_time = excluded.delivery_time,
    timezone = excluded.timezone,
    locale = excluded.locale,
    enabled = excluded.enabled,
    updated_at = now()
returning id, user_id, query, mode, to_char(delivery_time, 'HH24:MI'), timezone, locale, enabled, flagged, last_successful_delivery, created_at, updated_at;
`

const QGetSubscriptionByID = `--sql 3a8e1c72-5b4f-4d2a-9e6c-7d1f0a3b8c54
select ` + subscriptionColumns + `
from subscriptions
where id = $1;
`

const QGetSubscriptionByUserID = `--sql b91d6e38-2c7a-4f5b-8d0e-4a9c1f7e2b63
select ` + subscriptionColumns + `
from subscriptions
where user_id = $1;
`

const QListSubscriptions = `--sql e47a2d91-8f3c-4b6e-a5d2-1c8b9f4e7a30
select ` + subscriptionColumns + `
from subscriptions
order by created_at asc;
`

const QSetSubscriptionEnabled = `--sql 5d9c3f81-1e6b-4a7d-b2f4-8c0a5e3d9b16
update subscriptions
set enabled = $2, updated_at = now()
where id = $1;
`

const QSetSubscriptionFlagged = `--sql 9f1b7a43-6d2e-4c8f-a3b9-0e5d2c7f4a81
update subscriptions
set flagged = $2, updated_at = now()
where id = $1;
`

// Due subscriptions are computed in each subscription's own timezone. A day
// counts as undelivered until last_successful_delivery reaches it, and a live
// job (pending, running or succeeded) for the day suppresses re-creation.
const QDueSubscriptions = `--sql 2e6a9c14-7f3d-4b8a-9c1e-5a0f8d3b6e72
select ` + subscriptionColumns + `
from subscriptions s
where s.enabled
  and ($1::timestamptz at time zone s.timezone)::time >= s.delivery_time
  and (s.last_successful_delivery is null
       or s.last_successful_delivery < ($1::timestamptz at time zone s.timezone)::date)
  and not exists (
      select 1 from jobs j
      where j.subscription_id = s.id
        and j.period_date = ($1::timestamptz at time zone s.timezone)::date
        and j.status in ('pending', 'running', 'succeeded')
  )
order by s.created_at asc;
`
